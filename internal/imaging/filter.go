package imaging

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// BorderMode selects how samples outside the grid are synthesized.
type BorderMode int

const (
	// BorderNearest repeats the edge pixel (a a a | a b c).
	BorderNearest BorderMode = iota
	// BorderReflect mirrors about the pixel edge (b a | a b c).
	BorderReflect
	// BorderConstant treats outside samples as zero.
	BorderConstant
)

// Clamp limits i to [0, n-1].
func Clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Reflect maps an out-of-range index by mirroring about the pixel edge, so
// -1 maps to 0, -2 to 1 and n to n-1. Works for offsets larger than n.
func Reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// borderIndex resolves an index under the given mode. ok is false when the
// sample lies outside the grid under BorderConstant.
func borderIndex(i, n int, mode BorderMode) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch mode {
	case BorderReflect:
		return Reflect(i, n), true
	case BorderConstant:
		return 0, false
	default:
		return Clamp(i, n), true
	}
}

// GaussianKernel returns a normalized 1-D Gaussian kernel with radius
// int(truncate*sigma + 0.5).
func GaussianKernel(sigma, truncate float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(truncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Smooth applies a separable Gaussian blur to a row-major grid of
// width x height values and returns a new grid. Rows are processed in
// parallel.
func Smooth(values []float64, width, height int, sigma float64, mode BorderMode) []float64 {
	kernel := GaussianKernel(sigma, 4.0)
	radius := len(kernel) / 2

	tmp := make([]float64, len(values))
	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := values[y*width : (y+1)*width]
			for x := 0; x < width; x++ {
				acc := 0.0
				for k := -radius; k <= radius; k++ {
					xx, ok := borderIndex(x+k, width, mode)
					if !ok {
						continue
					}
					acc += kernel[k+radius] * row[xx]
				}
				tmp[y*width+x] = acc
			}
		}
	})

	out := make([]float64, len(values))
	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				acc := 0.0
				for k := -radius; k <= radius; k++ {
					yy, ok := borderIndex(y+k, height, mode)
					if !ok {
						continue
					}
					acc += kernel[k+radius] * tmp[yy*width+x]
				}
				out[y*width+x] = acc
			}
		}
	})
	return out
}

// Gaussian returns a smoothed copy of the image in the normalized [0, 1]
// range (Scale 1), clamping samples past the border.
func Gaussian(img *Image, sigma float64) *Image {
	out := NewImage(img.Width, img.Height, 1)
	out.Pix = Smooth(img.Float(), img.Width, img.Height, sigma, BorderNearest)
	return out
}

// MaskedSmooth blurs values inside mask only, treating everything outside the
// mask and the frame as missing and renormalizing by the smoothed mask
// weight. A nil mask covers the whole grid.
func MaskedSmooth(values []float64, mask *Mask, width, height int, sigma float64) []float64 {
	weights := make([]float64, len(values))
	masked := make([]float64, len(values))
	for i, v := range values {
		if mask == nil || mask.Pix[i] {
			weights[i] = 1
			masked[i] = v
		}
	}

	num := Smooth(masked, width, height, sigma, BorderConstant)
	den := Smooth(weights, width, height, sigma, BorderConstant)
	for i := range num {
		den[i] += epsilon
		num[i] /= den[i]
	}
	return num
}
