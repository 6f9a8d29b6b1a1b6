package gradient

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// Operator selects the derivative kernel.
type Operator int

const (
	// Sobel uses [1, 2, 1] / 4 smoothing.
	Sobel Operator = iota
	// Scharr uses [3, 10, 3] / 16 smoothing.
	Scharr
)

// String returns the operator name.
func (op Operator) String() string {
	switch op {
	case Sobel:
		return "sobel"
	case Scharr:
		return "scharr"
	default:
		return fmt.Sprintf("operator(%d)", int(op))
	}
}

// weights returns the smoothing weights for the operator.
func (op Operator) weights() [3]float64 {
	if op == Scharr {
		return [3]float64{3.0 / 16, 10.0 / 16, 3.0 / 16}
	}
	return [3]float64{1.0 / 4, 2.0 / 4, 1.0 / 4}
}

// Field is the per-pixel gradient of an image.
type Field struct {
	Width       int
	Height      int
	Orientation []float64
	Magnitude   []float64
}

// Compute estimates the gradient of img with the given operator.
//
// Parameters:
//   - img: Source intensities. Values are divided by img.Scale first.
//   - op: Sobel or Scharr.
//   - mask: Optional region. When non-nil, responses are kept only where the
//     mask eroded by a 3x3 square is set; when nil, the outermost rows and
//     columns are zeroed.
//
// Returns:
//   - *Field: Orientation (radians, in [-π, π]) and magnitude per pixel.
//   - error: Non-nil if the mask dimensions differ from the image.
//
// Samples beyond the frame replicate the edge pixel. Zeroed responses have
// magnitude 0 and orientation 0.
func Compute(img *imaging.Image, op Operator, mask *imaging.Mask) (*Field, error) {
	if mask != nil {
		if err := imaging.CheckShape(img, mask); err != nil {
			return nil, err
		}
	}

	w, h := img.Width, img.Height
	src := img.Float()
	k := op.weights()

	var keep *imaging.Mask
	if mask != nil {
		keep = region.ErodeSquare(mask)
	}

	field := &Field{
		Width:       w,
		Height:      h,
		Orientation: make([]float64, w*h),
		Magnitude:   make([]float64, w*h),
	}

	at := func(x, y int) float64 {
		return src[imaging.Clamp(y, h)*w+imaging.Clamp(x, w)]
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if keep != nil {
					if !keep.Pix[i] {
						continue
					}
				} else if x == 0 || y == 0 || x == w-1 || y == h-1 {
					continue
				}

				dh := k[0]*(at(x-1, y+1)-at(x-1, y-1)) +
					k[1]*(at(x, y+1)-at(x, y-1)) +
					k[2]*(at(x+1, y+1)-at(x+1, y-1))
				dv := k[0]*(at(x+1, y-1)-at(x-1, y-1)) +
					k[1]*(at(x+1, y)-at(x-1, y)) +
					k[2]*(at(x+1, y+1)-at(x-1, y+1))

				field.Orientation[i] = math.Atan2(dv, dh)
				field.Magnitude[i] = math.Hypot(dv, dh)
			}
		}
	})

	return field, nil
}
