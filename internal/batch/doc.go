// Package batch runs the feature extractor over a manifest of samples and
// writes the resulting feature table.
//
// # Manifest
//
// A manifest is a CSV file whose header names the columns id, image and mask,
// plus an optional label that is copied to the output untouched:
//
//	id,image,mask,label
//	case_001,images/case_001.png,masks/case_001.png,MALIGNANT
//
// # Execution
//
// Runner fans the entries out to a fixed pool of workers. Each sample runs
// under its own timeout; a sample that fails, panics or times out produces
// an error row and the rest of the batch continues.
//
// # Output
//
// WriteCSV emits id, label, the thirteen feature values, optional per-kernel
// Gabor columns and an error column, one row per entry in manifest order.
package batch
