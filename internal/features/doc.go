// Package features assembles the lesion descriptors into one feature record
// per (image, mask) sample.
//
// # Record
//
// A Record carries thirteen flat values, reported by Map under these keys:
//
//   - spiculationA..D: gradient dispersion on the lesion, its border band, the
//     whole frame and the opened background
//   - spiculationRA..RD: the same on the intensity-rescaled image
//   - circularity: coverage of the equal-area circle by the lesion
//   - iou: overlap of the image and mask bounding boxes
//   - hough: number of prominent straight lines
//   - snake: mean displacement of the active contour
//   - gabor: number of Gabor kernels; the responses are kept in Record.Gabor
//
// # Errors
//
// Extract returns ErrShapeMismatch when the image and mask sizes differ and
// ErrNumericInstability when any value is not finite. Degenerate samples
// produce zeros, or ErrDegenerateInput when Options.StrictDegenerate is set.
//
// # Concurrency
//
// An Extractor holds only immutable settings; one instance may serve many
// goroutines.
package features
