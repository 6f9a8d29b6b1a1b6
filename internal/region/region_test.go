package region

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// squareMask returns a width x height mask with a filled square of side size
// whose top-left corner is (x0, y0).
func squareMask(width, height, x0, y0, size int) *imaging.Mask {
	m := imaging.NewMask(width, height)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func bruteForceDistance(mask *imaging.Mask, x, y int) float64 {
	if !mask.At(x, y) {
		return 0
	}
	best := math.Inf(1)
	for yy := 0; yy < mask.Height; yy++ {
		for xx := 0; xx < mask.Width; xx++ {
			if mask.At(xx, yy) {
				continue
			}
			d := math.Hypot(float64(xx-x), float64(yy-y))
			if d < best {
				best = d
			}
		}
	}
	return best
}

func TestDistanceTransform_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mask := imaging.NewMask(23, 17)
	for i := range mask.Pix {
		mask.Pix[i] = rng.Float64() < 0.8
	}

	dist := DistanceTransform(mask)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			want := bruteForceDistance(mask, x, y)
			require.InDelta(t, want, dist[y*mask.Width+x], 1e-9, "pixel (%d,%d)", x, y)
		}
	}
}

func TestDistanceTransform_NoBackground(t *testing.T) {
	mask := squareMask(4, 4, 0, 0, 4)
	for _, d := range DistanceTransform(mask) {
		assert.True(t, math.IsInf(d, 1))
	}
}

func TestBorderBand(t *testing.T) {
	mask := squareMask(21, 21, 5, 5, 11)

	band := BorderBand(mask, DefaultBorderWidth)
	assert.Equal(t, 21, band.Width)
	assert.Equal(t, 121-25, band.Area())
	assert.True(t, band.At(5, 5), "corner pixel should be in the band")
	assert.True(t, band.At(10, 7), "depth-3 pixel should be in the band")
	assert.False(t, band.At(10, 8), "depth-4 pixel should be outside the band")
	assert.False(t, band.At(0, 0), "background should be outside the band")
}

func TestBorderBand_FullFrame(t *testing.T) {
	mask := squareMask(6, 6, 0, 0, 6)
	assert.Equal(t, 0, BorderBand(mask, DefaultBorderWidth).Area())
}

func TestInverse(t *testing.T) {
	mask := squareMask(8, 8, 2, 2, 3)
	inv := Inverse(mask)
	assert.Equal(t, 64-9, inv.Area())
	for i := range mask.Pix {
		assert.NotEqual(t, mask.Pix[i], inv.Pix[i])
	}
}

func TestOpenedInverse_RemovesThinFragments(t *testing.T) {
	mask := squareMask(40, 40, 10, 10, 20)
	// A one pixel wide background slit inside the lesion.
	for y := 12; y < 28; y++ {
		mask.Set(20, y, false)
	}

	opened := OpenedInverse(mask, DefaultOpeningRadius)
	require.Equal(t, 40, opened.Width)
	require.Equal(t, 40, opened.Height)

	assert.False(t, opened.At(20, 20), "slit should be removed by the opening")
	assert.True(t, opened.At(0, 0), "frame corner should survive with mirrored borders")
	assert.True(t, opened.At(39, 20), "background strip along the frame should survive")
	assert.False(t, opened.At(15, 15), "lesion interior is never in the inverse")
}

func TestErodeSquare(t *testing.T) {
	t.Run("interior", func(t *testing.T) {
		eroded := ErodeSquare(squareMask(10, 10, 2, 2, 5))
		assert.Equal(t, 9, eroded.Area())
		assert.True(t, eroded.At(3, 3))
		assert.False(t, eroded.At(2, 2))
	})

	t.Run("frame counts as background", func(t *testing.T) {
		eroded := ErodeSquare(squareMask(5, 5, 0, 0, 5))
		assert.Equal(t, 9, eroded.Area())
		assert.False(t, eroded.At(0, 0))
	})
}

func TestDiskFootprint(t *testing.T) {
	// Lattice points with x²+y² <= 25.
	assert.Len(t, DiskFootprint(5), 81)
	assert.Len(t, DiskFootprint(0), 1)
	assert.Len(t, SquareFootprint(1), 9)
}

func TestDisk(t *testing.T) {
	disk := Disk(41, 41, 20, 20, 10)
	assert.Equal(t, 317, disk.Area())
	assert.True(t, disk.At(30, 20))
	assert.False(t, disk.At(31, 20))
}

func TestLabel(t *testing.T) {
	mask := imaging.NewMask(10, 6)
	// Component 1: diagonal pair, joined through 8-connectivity.
	mask.Set(0, 0, true)
	mask.Set(1, 1, true)
	// Component 2: a 3x2 block.
	for y := 3; y < 5; y++ {
		for x := 5; x < 8; x++ {
			mask.Set(x, y, true)
		}
	}

	comps := Label(mask)
	require.Equal(t, 2, comps.Count())
	assert.Equal(t, []int{2, 6}, comps.Sizes)
	assert.Equal(t, 1, comps.IDs[0])
	assert.Equal(t, 1, comps.IDs[1*10+1])
	assert.Equal(t, 2, comps.IDs[3*10+5])
	assert.Equal(t, 0, comps.IDs[9])

	largest := Largest(mask)
	assert.Equal(t, 6, largest.Area())
	assert.False(t, largest.At(0, 0))
}

func TestLargest_Empty(t *testing.T) {
	assert.Equal(t, 0, Largest(imaging.NewMask(5, 5)).Area())
}

func TestCentroid(t *testing.T) {
	row, col, area := Centroid(squareMask(10, 10, 2, 4, 3))
	assert.Equal(t, 9, area)
	assert.InDelta(t, 5, row, 1e-12)
	assert.InDelta(t, 3, col, 1e-12)

	_, _, area = Centroid(imaging.NewMask(3, 3))
	assert.Equal(t, 0, area)
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", Box{0, 9, 0, 9, false}, Box{0, 9, 0, 9, false}, 1},
		{"nested", Box{0, 9, 0, 9, false}, Box{0, 4, 0, 4, false}, 0.25},
		{"disjoint", Box{0, 4, 0, 4, false}, Box{6, 9, 6, 9, false}, 0},
		{"half overlap", Box{0, 9, 0, 9, false}, Box{0, 9, 5, 14, false}, 50.0 / 150.0},
		{"empty", Box{0, 9, 0, 9, false}, Box{Empty: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestNonzeroBox(t *testing.T) {
	img := imaging.NewImage(10, 8, 255)
	img.Set(3, 2, 10)
	img.Set(7, 6, 1)

	assert.Equal(t, Box{MinRow: 2, MaxRow: 6, MinCol: 3, MaxCol: 7}, NonzeroBox(img))
	assert.True(t, NonzeroBox(imaging.NewImage(3, 3, 1)).Empty)
}
