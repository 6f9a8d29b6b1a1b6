package detection

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// CannyOptions configures Canny edge detection.
type CannyOptions struct {
	// Sigma is the standard deviation of the Gaussian pre-smoothing.
	Sigma float64

	// Low and High are the hysteresis thresholds applied to the unnormalized
	// Sobel magnitude of the smoothed [0, 1] image.
	Low  float64
	High float64
}

// DefaultCannyOptions returns sigma 5 with thresholds 0.1 and 0.2.
func DefaultCannyOptions() CannyOptions {
	return CannyOptions{Sigma: 5, Low: 0.1, High: 0.2}
}

// Canny returns the edge map of img.
//
// # Algorithm
//
//  1. Smooth the [0, 1] image with a Gaussian whose support stops at the
//     frame, renormalizing by the smoothed weight so borders are not darkened
//  2. Take row and column Sobel derivatives and their magnitude
//  3. Thin edges with non-maximum suppression, interpolating the magnitude
//     along the gradient direction in four 45-degree sectors
//  4. Keep weak edges (>= Low) only when their 8-connected component contains
//     a strong edge (>= High)
//
// Pixels on the outermost row and column are never edges.
func Canny(img *imaging.Image, opts CannyOptions) *imaging.Mask {
	w, h := img.Width, img.Height
	smoothed := imaging.MaskedSmooth(img.Float(), nil, w, h, opts.Sigma)

	// Row (i) and column (j) derivatives.
	isobel := make([]float64, w*h)
	jsobel := make([]float64, w*h)
	magnitude := make([]float64, w*h)
	at := func(x, y int) float64 {
		return smoothed[imaging.Clamp(y, h)*w+imaging.Clamp(x, w)]
	}
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				isobel[i] = (at(x-1, y+1) - at(x-1, y-1)) +
					2*(at(x, y+1)-at(x, y-1)) +
					(at(x+1, y+1) - at(x+1, y-1))
				jsobel[i] = (at(x+1, y-1) - at(x-1, y-1)) +
					2*(at(x+1, y)-at(x-1, y)) +
					(at(x+1, y+1) - at(x-1, y+1))
				magnitude[i] = math.Hypot(isobel[i], jsobel[i])
			}
		}
	})

	weak := imaging.NewMask(w, h)
	strong := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if magnitude[i] == 0 || !isLocalMaximum(magnitude, isobel[i], jsobel[i], x, y, w) {
				continue
			}
			if magnitude[i] >= opts.Low {
				weak.Pix[i] = true
				strong[i] = magnitude[i] >= opts.High
			}
		}
	}

	return hysteresis(weak, strong)
}

// isLocalMaximum reports whether the magnitude at (x, y) is at least the
// interpolated magnitude of both neighbors along the gradient direction.
//
// The gradient direction is resolved into one of four sectors. A direction
// lying exactly on a sector boundary matches more than one sector; the last
// matching sector decides.
func isLocalMaximum(mag []float64, gi, gj float64, x, y, w int) bool {
	m := mag[y*w+x]
	at := func(dx, dy int) float64 {
		return mag[(y+dy)*w+x+dx]
	}
	ai, aj := math.Abs(gi), math.Abs(gj)
	same := (gi >= 0 && gj >= 0) || (gi <= 0 && gj <= 0)
	opposite := (gi <= 0 && gj >= 0) || (gi >= 0 && gj <= 0)

	result := false
	matched := false

	// 0-45 degrees: mostly along rows, toward (+1, +1).
	if same && ai >= aj {
		wt := aj / ai
		plus := at(1, 1)*wt+at(0, 1)*(1-wt) <= m
		minus := at(-1, -1)*wt+at(0, -1)*(1-wt) <= m
		result, matched = plus && minus, true
	}
	// 45-90 degrees: mostly along columns, toward (+1, +1).
	if same && ai <= aj {
		wt := ai / aj
		plus := at(1, 1)*wt+at(1, 0)*(1-wt) <= m
		minus := at(-1, -1)*wt+at(-1, 0)*(1-wt) <= m
		result, matched = plus && minus, true
	}
	// 90-135 degrees: mostly along columns, toward (+1, -1).
	if opposite && ai <= aj {
		wt := ai / aj
		plus := at(1, -1)*wt+at(1, 0)*(1-wt) <= m
		minus := at(-1, 1)*wt+at(-1, 0)*(1-wt) <= m
		result, matched = plus && minus, true
	}
	// 135-180 degrees: mostly along rows, toward (+1, -1).
	if opposite && ai >= aj {
		wt := aj / ai
		plus := at(1, -1)*wt+at(0, -1)*(1-wt) <= m
		minus := at(-1, 1)*wt+at(0, 1)*(1-wt) <= m
		result, matched = plus && minus, true
	}

	return matched && result
}

// hysteresis keeps the 8-connected components of weak that contain at least
// one strong pixel.
func hysteresis(weak *imaging.Mask, strong []bool) *imaging.Mask {
	comps := region.Label(weak)
	good := make([]bool, comps.Count()+1)
	for i, id := range comps.IDs {
		if id != 0 && strong[i] {
			good[id] = true
		}
	}

	out := imaging.NewMask(weak.Width, weak.Height)
	for i, id := range comps.IDs {
		out.Pix[i] = id != 0 && good[id]
	}
	return out
}
