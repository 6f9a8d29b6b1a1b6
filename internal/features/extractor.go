package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironsheep/lesion-features/internal/detection"
	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// AnnotationScrubber blanks burned-in scanner annotations so they do not
// widen the image bounding box.
type AnnotationScrubber interface {
	Scrub(ctx context.Context, img *imaging.Image) (*imaging.Image, error)
}

// Options configures every descriptor of the extractor.
type Options struct {
	Spiculation SpiculationOptions
	Hough       detection.HoughOptions
	Snake       detection.SnakeOptions
	Gabor       detection.GaborOptions

	// StrictDegenerate turns an empty mask or an all-zero image into
	// ErrDegenerateInput instead of a record of sentinel zeros.
	StrictDegenerate bool

	// Scrubber, when set, cleans the image before its bounding box is taken.
	Scrubber AnnotationScrubber
}

// DefaultOptions returns the defaults of every descriptor.
func DefaultOptions() Options {
	return Options{
		Spiculation: DefaultSpiculationOptions(),
		Hough:       detection.DefaultHoughOptions(),
		Snake:       detection.DefaultSnakeOptions(),
		Gabor:       detection.DefaultGaborOptions(),
	}
}

// Extractor turns (image, mask) samples into feature records. It holds only
// immutable settings and is safe for concurrent use.
type Extractor struct {
	opts Options
	bank []detection.GaborKernel
}

// NewExtractor builds the Gabor bank once and returns an extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{
		opts: opts,
		bank: detection.GaborBank(opts.Gabor),
	}
}

// Options returns the extractor settings.
func (e *Extractor) Options() Options {
	return e.opts
}

// Bank returns the Gabor kernels.
func (e *Extractor) Bank() []detection.GaborKernel {
	return e.bank
}

// BoundaryResult holds the boundary-tracing descriptors.
type BoundaryResult struct {
	Lines *detection.LinesResult `json:"lines"`
	Snake *detection.SnakeResult `json:"snake"`
	Edges *imaging.Mask          `json:"-"`
}

// Boundary runs the Hough line count and the active contour on img.
func (e *Extractor) Boundary(img *imaging.Image) (*BoundaryResult, error) {
	lines, edges := detection.DetectLines(img, e.opts.Hough)
	snake, err := e.snake(img)
	if err != nil {
		return nil, err
	}
	return &BoundaryResult{Lines: lines, Snake: snake, Edges: edges}, nil
}

// Texture returns the Gabor responses of img.
func (e *Extractor) Texture(img *imaging.Image) []detection.GaborResponse {
	return detection.GaborResponses(img, e.bank)
}

// Shape returns the shape descriptors, scrubbing annotations first when a
// scrubber is configured.
func (e *Extractor) Shape(ctx context.Context, img *imaging.Image, mask *imaging.Mask) (ShapeResult, error) {
	if err := imaging.CheckShape(img, mask); err != nil {
		return ShapeResult{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	boxed := img
	if e.opts.Scrubber != nil {
		scrubbed, err := e.opts.Scrubber.Scrub(ctx, img)
		if err != nil {
			return ShapeResult{}, fmt.Errorf("failed to scrub annotations: %w", err)
		}
		boxed = scrubbed
	}
	return Shape(boxed, mask), nil
}

// Extract computes the full feature record of one sample.
//
// Parameters:
//   - ctx: Checked between descriptors. A cancelled context aborts the sample.
//   - img: Source image. It is never modified.
//   - mask: Lesion mask with the dimensions of img.
//
// Returns:
//   - *Record: All thirteen values plus the Gabor response matrix.
//   - error: ErrShapeMismatch, ErrNumericInstability, ErrDegenerateInput in
//     strict mode, or the context error.
//
// Degenerate samples (an empty mask, an all-zero image or a frame smaller
// than 2x2) still produce a record unless StrictDegenerate is set: every
// descriptor that has nothing to measure reports 0.
func (e *Extractor) Extract(ctx context.Context, img *imaging.Image, mask *imaging.Mask) (*Record, error) {
	if err := imaging.CheckShape(img, mask); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if err := e.checkDegenerate(img, mask); err != nil {
		return nil, err
	}
	if img.Width == 0 || img.Height == 0 {
		return &Record{Gabor: e.Texture(img), GaborCount: len(e.bank)}, nil
	}

	record := &Record{}
	var err error

	record.Spiculation, record.SpiculationRescaled, err = SpiculationPair(img, mask, e.opts.Spiculation)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape, err := e.Shape(ctx, img, mask)
	if err != nil {
		return nil, err
	}
	record.Circularity = shape.Circularity
	record.IoU = shape.IoU
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record.Hough = detection.HoughLineCount(img, e.opts.Hough)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snake, err := e.snake(img)
	if err != nil {
		return nil, err
	}
	record.Snake = snake.MeanDisplacement
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record.Gabor = e.Texture(img)
	record.GaborCount = len(e.bank)

	if err := record.checkFinite(); err != nil {
		return nil, err
	}
	return record, nil
}

// snake runs the active contour. A frame too small for it is degenerate: the
// contour does not move unless strict mode turns it into ErrDegenerateInput.
func (e *Extractor) snake(img *imaging.Image) (*detection.SnakeResult, error) {
	snake, err := detection.ActiveContour(img, e.opts.Snake)
	switch {
	case errors.Is(err, detection.ErrFrameTooSmall):
		if e.opts.StrictDegenerate {
			return nil, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
		}
		return &detection.SnakeResult{Converged: true}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNumericInstability, err)
	}
	return snake, nil
}

// checkDegenerate reports an empty mask, an all-zero image or a frame too
// small for the active contour in strict mode.
func (e *Extractor) checkDegenerate(img *imaging.Image, mask *imaging.Mask) error {
	if !e.opts.StrictDegenerate {
		return nil
	}
	var reasons []error
	if mask.Area() == 0 {
		reasons = append(reasons, errors.New("mask has no foreground"))
	}
	if region.NonzeroBox(img).Empty {
		reasons = append(reasons, errors.New("image has no nonzero pixel"))
	}
	if img.Width < 2 || img.Height < 2 {
		reasons = append(reasons, fmt.Errorf("image %dx%d is too small", img.Width, img.Height))
	}
	if len(reasons) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDegenerateInput, errors.Join(reasons...))
}
