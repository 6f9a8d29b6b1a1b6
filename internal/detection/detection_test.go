package detection

import (
	"math"
	"math/rand"
	"testing"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// stepImage returns a width x height image that is 0 left of column edge and
// 1 from it onward.
func stepImage(width, height, edge int) *imaging.Image {
	img := imaging.NewImage(width, height, 1)
	for y := 0; y < height; y++ {
		for x := edge; x < width; x++ {
			img.Set(x, y, 1)
		}
	}
	return img
}

// diskImage returns an 8-bit image with a bright disk on a dark background.
func diskImage(width, height int, centerRow, centerCol, radius float64) *imaging.Image {
	img := imaging.NewImage(width, height, 255)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if math.Hypot(float64(y)-centerRow, float64(x)-centerCol) <= radius {
				img.Set(x, y, 200)
			} else {
				img.Set(x, y, 20)
			}
		}
	}
	return img
}

func TestCanny_StepEdge(t *testing.T) {
	edges := Canny(stepImage(40, 30, 20), DefaultCannyOptions())

	require.Equal(t, 40, edges.Width)
	assert.Greater(t, edges.Area(), 0)

	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			if !edges.At(x, y) {
				continue
			}
			assert.True(t, x >= 18 && x <= 21, "edge pixel (%d,%d) far from the step", x, y)
			assert.True(t, y > 0 && y < edges.Height-1, "edge pixel (%d,%d) on the frame", x, y)
		}
	}
}

func TestCanny_FlatImage(t *testing.T) {
	img := imaging.NewImage(20, 20, 1)
	for i := range img.Pix {
		img.Pix[i] = 0.7
	}
	assert.Equal(t, 0, Canny(img, DefaultCannyOptions()).Area())
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))
	assert.Nil(t, Linspace(0, 1, 0))

	angles := Linspace(-math.Pi/2, math.Pi/2, 100)
	assert.Len(t, angles, 100)
	assert.Equal(t, -math.Pi/2, angles[0])
	assert.Equal(t, math.Pi/2, angles[99])
}

func TestBinarize(t *testing.T) {
	img := imaging.NewImage(4, 1, 255)
	copy(img.Pix, []float64{0, 10, 20, 30})
	mask := Binarize(img)
	assert.Equal(t, []bool{false, false, true, true}, mask.Pix)
}

func TestHoughTransform_Votes(t *testing.T) {
	edges := imaging.NewMask(6, 8)
	edges.Set(3, 4, true)

	acc := HoughTransform(edges, []float64{0, math.Pi / 2})
	assert.Equal(t, 10, acc.Offset) // ceil(hypot(6, 8))
	assert.Equal(t, 21, acc.Rows)
	assert.Equal(t, 2, acc.Cols)
	assert.Equal(t, 1, acc.At(10+3, 0))
	assert.Equal(t, 1, acc.At(10+4, 1))
	assert.Equal(t, 3.0, acc.Distance(13))
}

func TestPeaks_SuppressesNeighbors(t *testing.T) {
	acc := &Accumulator{Rows: 60, Cols: 40, Offset: 30, Angles: Linspace(-math.Pi/2, math.Pi/2, 40)}
	acc.Votes = make([]int, acc.Rows*acc.Cols)
	set := func(r, c, v int) { acc.Votes[r*acc.Cols+c] = v }

	set(10, 5, 100) // strongest
	set(14, 8, 90)  // inside the first peak's window: suppressed
	set(40, 20, 80) // far away: kept
	set(50, 30, 40) // below half the maximum: ignored

	peaks := acc.Peaks(9, 10, 0.5)
	require.Len(t, peaks, 2)
	assert.Equal(t, Peak{Row: 10, Col: 5, Votes: 100}, peaks[0])
	assert.Equal(t, Peak{Row: 40, Col: 20, Votes: 80}, peaks[1])
}

func TestPeaks_Empty(t *testing.T) {
	acc := &Accumulator{Rows: 5, Cols: 5, Votes: make([]int, 25)}
	assert.Empty(t, acc.Peaks(9, 10, 0.5))
}

func TestDetectLines_StraightEdge(t *testing.T) {
	img := stepImage(60, 60, 30)
	img.Scale = 255
	for i := range img.Pix {
		img.Pix[i] *= 255
	}

	result, edges := DetectLines(img, DefaultHoughOptions())
	require.NotNil(t, edges)
	require.Equal(t, 1, result.Count)

	line := result.Lines[0]
	assert.Less(t, math.Abs(line.Angle), 0.1, "a vertical edge has a horizontal normal")
	assert.InDelta(t, 29.5, line.Distance, 2)
	assert.Greater(t, line.Length, 40.0)
	assert.Equal(t, 1, HoughLineCount(img, DefaultHoughOptions()))
}

func TestHoughLineCount_FlatImage(t *testing.T) {
	img := imaging.NewImage(30, 30, 255)
	assert.Equal(t, 0, HoughLineCount(img, DefaultHoughOptions()))
}

func TestInitialCircle(t *testing.T) {
	pts := InitialCircle(100, 200, 220, 100)
	require.Len(t, pts, 100)
	assert.InDelta(t, 200, pts[0].Row, 1e-9)
	assert.InDelta(t, 320, pts[0].Col, 1e-9)
	assert.InDelta(t, pts[0].Row, pts[99].Row, 1e-9)
	assert.InDelta(t, pts[0].Col, pts[99].Col, 1e-9)
	for _, p := range pts {
		assert.InDelta(t, 100, math.Hypot(p.Row-200, p.Col-220), 1e-9)
	}
}

func TestActiveContour(t *testing.T) {
	img := diskImage(120, 120, 60, 60, 25)
	opts := DefaultSnakeOptions()
	opts.CenterRow, opts.CenterCol, opts.Radius = 60, 60, 40
	opts.Points = 60
	opts.MaxIterations = 500

	result, err := ActiveContour(img, opts)
	require.NoError(t, err)
	require.Len(t, result.Final, 60)
	require.Len(t, result.Initial, 60)

	assert.False(t, math.IsNaN(result.MeanDisplacement))
	assert.GreaterOrEqual(t, result.MeanDisplacement, 0.0)
	assert.LessOrEqual(t, result.Iterations, 500)
	// Each vertex moves at most MaxPxMove per axis per iteration.
	assert.LessOrEqual(t, result.MeanDisplacement, math.Sqrt2*float64(result.Iterations))

	again, err := ActiveContour(img, opts)
	require.NoError(t, err)
	assert.Equal(t, result.MeanDisplacement, again.MeanDisplacement, "active contour must be deterministic")
}

func TestActiveContour_InvalidOptions(t *testing.T) {
	img := diskImage(20, 20, 10, 10, 5)
	opts := DefaultSnakeOptions()
	opts.Points = 2
	_, err := ActiveContour(img, opts)
	assert.Error(t, err)

	_, err = ActiveContour(imaging.NewImage(1, 1, 1), DefaultSnakeOptions())
	assert.ErrorIs(t, err, ErrFrameTooSmall)
	_, err = ActiveContour(imaging.NewImage(5, 1, 1), DefaultSnakeOptions())
	assert.ErrorIs(t, err, ErrFrameTooSmall)
}

func TestInternalEnergyInverse(t *testing.T) {
	inv, err := internalEnergyInverse(8, 0.015, 10, 0.001)
	require.NoError(t, err)

	// Rows of A sum to zero, so a constant vector v satisfies (A+γI)v = γv.
	for i := 0; i < 8; i++ {
		sum := 0.0
		for j := 0; j < 8; j++ {
			sum += inv.At(i, j)
		}
		assert.InDelta(t, 1/0.001, sum, 1e-6)
	}
}

func TestBilinear(t *testing.T) {
	grid := []float64{
		0, 1,
		2, 3,
	}
	assert.InDelta(t, 1.5, bilinear(grid, 2, 2, 0.5, 0.5), 1e-12)
	assert.InDelta(t, 1.0, bilinear(grid, 2, 2, 1, 0), 1e-12)
	assert.InDelta(t, 3.0, bilinear(grid, 2, 2, 5, 5), 1e-12, "positions clamp to the frame")
}

func TestGaborBank(t *testing.T) {
	bank := GaborBank(DefaultGaborOptions())
	require.Len(t, bank, 16)

	assert.Equal(t, 0.0, bank[0].Theta)
	assert.Equal(t, 1.0, bank[0].Sigma)
	assert.Equal(t, 0.05, bank[0].Frequency)
	assert.Equal(t, 0.25, bank[1].Frequency)
	assert.Equal(t, 3.0, bank[2].Sigma)
	assert.InDelta(t, math.Pi/4, bank[4].Theta, 1e-12)

	tests := []struct {
		index int
		size  int
	}{
		{0, 7},   // sigma 1, theta 0
		{2, 19},  // sigma 3, theta 0
		{4, 7},   // sigma 1, theta π/4: ceil(2.12)
		{6, 15},  // sigma 3, theta π/4: ceil(6.36)
		{10, 19}, // sigma 3, theta π/2
	}
	for _, tt := range tests {
		k := bank[tt.index].Kernel
		assert.Equal(t, tt.size, k.Width, "kernel %d width", tt.index)
		assert.Equal(t, tt.size, k.Height, "kernel %d height", tt.index)
	}
}

func TestNewGaborKernel_Center(t *testing.T) {
	k := NewGaborKernel(0.25, 0, 1, 3)
	// The center carries the envelope peak 1/(2πσ²) with cos(0) = 1.
	assert.InDelta(t, 1/(2*math.Pi), k.At(3, 3), 1e-12)
	// Symmetric about the center.
	assert.InDelta(t, k.At(1, 2), k.At(5, 4), 1e-12)
}

func TestGaborResponses_ConstantImage(t *testing.T) {
	img := imaging.NewImage(24, 20, 1)
	for i := range img.Pix {
		img.Pix[i] = 0.5
	}

	bank := GaborBank(DefaultGaborOptions())
	responses := GaborResponses(img, bank)
	require.Len(t, responses, len(bank))

	for i, r := range responses {
		sum := 0.0
		for _, v := range bank[i].Kernel.Matrix {
			sum += v
		}
		assert.InDelta(t, 0.5*sum, r.Mean, 1e-9, "kernel %d mean", i)
		assert.InDelta(t, 0, r.Variance, 1e-12, "kernel %d variance", i)
	}
}

// directWrapConvolution filters img with k by summing over the kernel with
// wrapped source indices.
func directWrapConvolution(img *imaging.Image, k *convolution.Kernel) []float64 {
	w, h := img.Width, img.Height
	cx, cy := k.Width/2, k.Height/2
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for j := 0; j < k.Height; j++ {
				for i := 0; i < k.Width; i++ {
					sy := mod(y+cy-j, h)
					sx := mod(x+cx-i, w)
					acc += k.At(i, j) * img.Pix[sy*w+sx]
				}
			}
			out[y*w+x] = acc
		}
	}
	return out
}

func TestGaborResponses_MatchesDirectWrapConvolution(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		sigma float64
	}{
		{"small odd frame", 11, 9, 1},
		{"prime frame", 31, 29, 3},
		{"prime frame narrow kernel", 37, 23, 1},
		{"kernel wider than frame", 7, 5, 3},
		{"single row", 13, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			img := imaging.NewImage(tt.w, tt.h, 1)
			for i := range img.Pix {
				img.Pix[i] = rng.Float64()
			}

			k := GaborKernel{Theta: math.Pi / 4, Sigma: tt.sigma, Frequency: 0.25, Kernel: NewGaborKernel(0.25, math.Pi/4, tt.sigma, 3)}
			// A second, narrower kernel makes the bank pad by the widest one.
			narrow := GaborKernel{Theta: 0, Sigma: 1, Frequency: 0.05, Kernel: NewGaborKernel(0.05, 0, 1, 3)}
			got := GaborResponses(img, []GaborKernel{k, narrow})

			for n, kernel := range []GaborKernel{k, narrow} {
				mean, variance := stat.PopMeanVariance(directWrapConvolution(img, kernel.Kernel), nil)
				assert.InDelta(t, mean, got[n].Mean, 1e-9, "kernel %d mean", n)
				assert.InDelta(t, variance, got[n].Variance, 1e-9, "kernel %d variance", n)
			}
		})
	}
}

func TestSmoothSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{1, 1},
		{7, 8},
		{16, 16},
		{509, 512},
		{1021, 1024},
		{1039, 1080},
		{4099, 4320},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, smoothSize(tt.in), "smoothSize(%d)", tt.in)
	}
}
