package imaging

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between the closest ranks. The input is not modified.
// Returns NaN for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Rescale stretches the intensity window between the low and high percentiles
// of the image to the full [0, Scale] range of its depth.
//
// Values below the low percentile clip to 0 and values above the high
// percentile clip to Scale. Integer depths truncate the stretched value, the
// same way a conversion back to the source pixel type would. When the window
// is empty (high <= low) every pixel maps to 0.
func Rescale(img *Image, lowPct, highPct float64) *Image {
	out := NewImage(img.Width, img.Height, img.Scale)
	if len(img.Pix) == 0 {
		return out
	}

	sorted := make([]float64, len(img.Pix))
	copy(sorted, img.Pix)
	sort.Float64s(sorted)
	lo := percentileSorted(sorted, lowPct)
	hi := percentileSorted(sorted, highPct)
	if hi <= lo {
		return out
	}

	copy(out.Pix, img.Pix)
	floats.AddConst(-lo, out.Pix)
	floats.Scale(img.Scale/(hi-lo), out.Pix)
	for i, v := range out.Pix {
		if v < 0 {
			v = 0
		} else if v > img.Scale {
			v = img.Scale
		}
		if img.IsInteger() {
			v = math.Trunc(v)
		}
		out.Pix[i] = v
	}
	return out
}

// Mean returns the arithmetic mean of the pixel values.
func (m *Image) Mean() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return floats.Sum(m.Pix) / float64(len(m.Pix))
}
