package gradient

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the default number of orientation bins over [-π, π].
const DefaultBins = 360

// Dispersion returns the sample standard deviation of the per-orientation
// magnitude sums, each divided by the mean magnitude over all pixels.
//
// Parameters:
//   - f: Gradient field.
//   - bins: Number of equal-width orientation bins over [-π, π]. A value of
//     zero or less groups pixels by their exact orientation value instead.
//
// Only occupied groups take part. The result is 0 when the mean magnitude is
// 0 or when fewer than two groups are occupied.
func Dispersion(f *Field, bins int) float64 {
	if len(f.Magnitude) == 0 {
		return 0
	}
	mean := stat.Mean(f.Magnitude, nil)
	if mean == 0 {
		return 0
	}

	sums := groupSums(f, bins)
	if len(sums) < 2 {
		return 0
	}
	for i := range sums {
		sums[i] /= mean
	}
	return stat.StdDev(sums, nil)
}

// groupSums returns the magnitude sum of each occupied orientation group,
// ordered by orientation.
func groupSums(f *Field, bins int) []float64 {
	if bins > 0 {
		acc := make([]float64, bins)
		used := make([]bool, bins)
		for i, theta := range f.Orientation {
			b := int(math.Floor((theta + math.Pi) / (2 * math.Pi) * float64(bins)))
			if b < 0 {
				b = 0
			} else if b >= bins {
				b = bins - 1
			}
			acc[b] += f.Magnitude[i]
			used[b] = true
		}
		sums := make([]float64, 0, bins)
		for b, ok := range used {
			if ok {
				sums = append(sums, acc[b])
			}
		}
		return sums
	}

	groups := make(map[float64]float64)
	for i, theta := range f.Orientation {
		groups[theta] += f.Magnitude[i]
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	sums := make([]float64, len(keys))
	for i, k := range keys {
		sums[i] = groups[k]
	}
	return sums
}
