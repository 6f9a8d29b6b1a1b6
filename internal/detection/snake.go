package detection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/lesion-features/internal/gradient"
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// convergenceOrder is how many past configurations a snake is compared with
// before it is declared converged. Oscillating snakes never settle on the
// previous step alone.
const convergenceOrder = 10

// SnakeOptions configures the active contour.
type SnakeOptions struct {
	// Points is the number of contour vertices.
	Points int

	// CenterRow, CenterCol and Radius place the initial circle.
	CenterRow float64
	CenterCol float64
	Radius    float64

	// Sigma is the Gaussian smoothing applied before edge extraction.
	Sigma float64

	// Alpha weights elasticity (length), Beta weights stiffness (curvature)
	// and Gamma is the explicit time step.
	Alpha float64
	Beta  float64
	Gamma float64

	// MaxPxMove caps the displacement of a vertex per iteration.
	MaxPxMove float64

	// MaxIterations bounds the number of update steps.
	MaxIterations int

	// Convergence is the largest per-vertex movement, summed over x and y,
	// still considered stationary.
	Convergence float64
}

// DefaultSnakeOptions returns a 100-point circle of radius 100 centered at
// row 220, column 200, with alpha 0.015, beta 10 and gamma 0.001. The center
// follows the dataset's (x, y) convention, where the first coordinate of the
// circle is a column.
func DefaultSnakeOptions() SnakeOptions {
	return SnakeOptions{
		Points:        100,
		CenterRow:     220,
		CenterCol:     200,
		Radius:        100,
		Sigma:         3,
		Alpha:         0.015,
		Beta:          10,
		Gamma:         0.001,
		MaxPxMove:     1.0,
		MaxIterations: 2500,
		Convergence:   0.1,
	}
}

// ErrFrameTooSmall is returned by ActiveContour when the image has no room
// for an energy gradient.
var ErrFrameTooSmall = errors.New("image is too small for an active contour")

// PointF is a sub-pixel position.
type PointF struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// SnakeResult holds the evolved contour.
type SnakeResult struct {
	Initial []PointF `json:"initial"`
	Final   []PointF `json:"final"`

	// MeanDisplacement is the mean Euclidean distance between matching
	// initial and final vertices.
	MeanDisplacement float64 `json:"mean_displacement"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// InitialCircle returns n vertices on the circle, starting at angle 0 and
// ending back on it, as a closed polyline sampled at evenly spaced angles on
// [0, 2π].
func InitialCircle(n int, centerRow, centerCol, radius float64) []PointF {
	angles := Linspace(0, 2*math.Pi, n)
	pts := make([]PointF, n)
	for i, s := range angles {
		pts[i] = PointF{
			Row: centerRow + radius*math.Sin(s),
			Col: centerCol + radius*math.Cos(s),
		}
	}
	return pts
}

// ActiveContour evolves a closed snake toward strong edges of img.
//
// # Algorithm
//
// The image is smoothed and its Sobel edge magnitude becomes the external
// energy. The internal energy matrix A = -Alpha*D2 + Beta*D4 uses periodic
// second and fourth differences; (A + Gamma*I) is inverted once. Each step
// samples the energy gradient at every vertex and solves
//
//	x' = (A + Gamma*I)^-1 (Gamma*x + dE/dx)
//
// limiting each move to MaxPxMove*tanh(x' - x). The snake has converged when
// one of the last ten saved configurations is within Convergence of the
// current one.
//
// Returns ErrFrameTooSmall for images narrower or shorter than 2 pixels, and
// an error when the options are unusable or the internal energy matrix cannot
// be inverted.
func ActiveContour(img *imaging.Image, opts SnakeOptions) (*SnakeResult, error) {
	if opts.Points < 3 {
		return nil, fmt.Errorf("snake needs at least 3 points, got %d", opts.Points)
	}
	if img.Width < 2 || img.Height < 2 {
		return nil, fmt.Errorf("%w: image %dx%d", ErrFrameTooSmall, img.Width, img.Height)
	}

	energy, err := edgeEnergy(img, opts.Sigma)
	if err != nil {
		return nil, err
	}
	gx, gy := centralDifferences(energy, img.Width, img.Height)

	n := opts.Points
	inv, err := internalEnergyInverse(n, opts.Alpha, opts.Beta, opts.Gamma)
	if err != nil {
		return nil, err
	}

	initial := InitialCircle(n, opts.CenterRow, opts.CenterCol, opts.Radius)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range initial {
		x[i] = p.Col
		y[i] = p.Row
	}

	xsave := make([][]float64, convergenceOrder)
	ysave := make([][]float64, convergenceOrder)
	for j := range xsave {
		xsave[j] = make([]float64, n)
		ysave[j] = make([]float64, n)
	}

	bx := mat.NewVecDense(n, nil)
	by := mat.NewVecDense(n, nil)
	var xn, yn mat.VecDense

	result := &SnakeResult{Initial: initial}
	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		for i := 0; i < n; i++ {
			bx.SetVec(i, opts.Gamma*x[i]+bilinear(gx, img.Width, img.Height, x[i], y[i]))
			by.SetVec(i, opts.Gamma*y[i]+bilinear(gy, img.Width, img.Height, x[i], y[i]))
		}
		xn.MulVec(inv, bx)
		yn.MulVec(inv, by)

		for i := 0; i < n; i++ {
			x[i] += opts.MaxPxMove * math.Tanh(xn.AtVec(i)-x[i])
			y[i] += opts.MaxPxMove * math.Tanh(yn.AtVec(i)-y[i])
		}

		j := iter % (convergenceOrder + 1)
		if j < convergenceOrder {
			copy(xsave[j], x)
			copy(ysave[j], y)
			continue
		}
		if snakeDistance(xsave, ysave, x, y) < opts.Convergence {
			result.Converged = true
			iter++
			break
		}
	}
	result.Iterations = iter

	result.Final = make([]PointF, n)
	total := 0.0
	for i := 0; i < n; i++ {
		result.Final[i] = PointF{Row: y[i], Col: x[i]}
		total += math.Hypot(initial[i].Row-y[i], initial[i].Col-x[i])
	}
	result.MeanDisplacement = total / float64(n)

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("snake diverged after %d iterations", iter)
		}
	}

	return result, nil
}

// edgeEnergy smooths img and returns its normalized Sobel edge magnitude,
// zero along the frame.
func edgeEnergy(img *imaging.Image, sigma float64) ([]float64, error) {
	smoothed := imaging.Gaussian(img, sigma)
	field, err := gradient.Compute(smoothed, gradient.Sobel, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compute edge energy: %w", err)
	}
	energy := field.Magnitude
	for i := range energy {
		energy[i] /= math.Sqrt2
	}
	return energy, nil
}

// centralDifferences returns the column (x) and row (y) derivatives of a
// grid, one-sided along the frame.
func centralDifferences(v []float64, w, h int) ([]float64, []float64) {
	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			switch {
			case x == 0:
				gx[i] = v[i+1] - v[i]
			case x == w-1:
				gx[i] = v[i] - v[i-1]
			default:
				gx[i] = (v[i+1] - v[i-1]) / 2
			}
			switch {
			case y == 0:
				gy[i] = v[i+w] - v[i]
			case y == h-1:
				gy[i] = v[i] - v[i-w]
			default:
				gy[i] = (v[i+w] - v[i-w]) / 2
			}
		}
	}
	return gx, gy
}

// bilinear samples a grid at a sub-pixel position, clamping to the frame.
func bilinear(v []float64, w, h int, x, y float64) float64 {
	x = math.Max(0, math.Min(x, float64(w-1)))
	y = math.Max(0, math.Min(y, float64(h-1)))

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, w-1)
	y1 := min(y0+1, h-1)
	xRatio := x - float64(x0)
	yRatio := y - float64(y0)

	p00 := v[y0*w+x0]
	p01 := v[y0*w+x1]
	p10 := v[y1*w+x0]
	p11 := v[y1*w+x1]
	top := p00 + xRatio*(p01-p00)
	bottom := p10 + xRatio*(p11-p10)
	return top + yRatio*(bottom-top)
}

// internalEnergyInverse builds (-alpha*D2 + beta*D4 + gamma*I)^-1 for a closed
// contour of n vertices.
func internalEnergyInverse(n int, alpha, beta, gamma float64) (*mat.Dense, error) {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		next := (i + 1) % n
		prev2 := (i - 2 + n) % n
		next2 := (i + 2) % n

		// Second difference: x[i-1] - 2x[i] + x[i+1].
		a.Set(i, prev, a.At(i, prev)-alpha)
		a.Set(i, next, a.At(i, next)-alpha)
		a.Set(i, i, a.At(i, i)+2*alpha)

		// Fourth difference: x[i-2] - 4x[i-1] + 6x[i] - 4x[i+1] + x[i+2].
		a.Set(i, prev2, a.At(i, prev2)+beta)
		a.Set(i, next2, a.At(i, next2)+beta)
		a.Set(i, prev, a.At(i, prev)-4*beta)
		a.Set(i, next, a.At(i, next)-4*beta)
		a.Set(i, i, a.At(i, i)+6*beta)

		a.Set(i, i, a.At(i, i)+gamma)
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("failed to invert snake energy matrix: %w", err)
	}
	return &inv, nil
}

// snakeDistance returns, over the saved configurations, the smallest of the
// largest per-vertex |dx| + |dy| to the current one.
func snakeDistance(xsave, ysave [][]float64, x, y []float64) float64 {
	best := math.Inf(1)
	for j := range xsave {
		worst := 0.0
		for i := range x {
			d := math.Abs(xsave[j][i]-x[i]) + math.Abs(ysave[j][i]-y[i])
			if d > worst {
				worst = d
			}
		}
		if worst < best {
			best = worst
		}
	}
	return best
}
