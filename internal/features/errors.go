package features

import "errors"

// Sentinel errors returned by the extractor. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrDegenerateInput is returned in strict mode for an empty mask, an
	// all-zero image or a zero-area bounding box union.
	ErrDegenerateInput = errors.New("features: degenerate input")

	// ErrShapeMismatch indicates the image and mask dimensions differ.
	ErrShapeMismatch = errors.New("features: image and mask dimensions differ")

	// ErrNumericInstability indicates a filter produced a NaN or infinite value.
	ErrNumericInstability = errors.New("features: non-finite value")
)
