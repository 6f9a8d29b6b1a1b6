package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// HoughOptions configures straight-line detection.
type HoughOptions struct {
	// Canny configures the edge map the lines are voted from.
	Canny CannyOptions

	// Angles is the number of evenly spaced angles tested on [-π/2, π/2].
	Angles int

	// MinDistance is the half-size of the suppression window along the
	// distance axis, in accumulator cells.
	MinDistance int

	// MinAngle is the half-size of the suppression window along the angle
	// axis, in accumulator cells.
	MinAngle int

	// ThresholdRatio sets the minimum peak height as a fraction of the
	// accumulator maximum.
	ThresholdRatio float64
}

// DefaultHoughOptions returns 100 angles, a 9 by 10 cell suppression window
// and a threshold of half the accumulator maximum.
func DefaultHoughOptions() HoughOptions {
	return HoughOptions{
		Canny:          DefaultCannyOptions(),
		Angles:         100,
		MinDistance:    9,
		MinAngle:       10,
		ThresholdRatio: 0.5,
	}
}

// Line is a peak of the Hough accumulator together with the edge pixels that
// support it.
type Line struct {
	// Angle is the normal angle of the line in radians.
	Angle float64 `json:"angle"`

	// Distance is the signed distance of the line from the origin, so the line
	// satisfies x*cos(Angle) + y*sin(Angle) = Distance.
	Distance float64 `json:"distance"`

	// Votes is the accumulator count at the peak.
	Votes int `json:"votes"`

	// Start and End are the extreme supporting edge pixels along the line.
	// They are zero when no edge pixel lies within two pixels of the line.
	Start Point `json:"start"`
	End   Point `json:"end"`

	// Length is the distance between Start and End.
	Length float64 `json:"length"`
}

// LinesResult contains detected lines
type LinesResult struct {
	Lines []Line `json:"lines"`
	Count int    `json:"count"`
}

// Accumulator is the Hough vote table. Rows index distance and columns index
// angle.
type Accumulator struct {
	Votes  []int
	Rows   int
	Cols   int
	Angles []float64
	Offset int
}

// At returns the votes for distance row r and angle column c.
func (a *Accumulator) At(r, c int) int {
	return a.Votes[r*a.Cols+c]
}

// Distance returns the distance represented by row r.
func (a *Accumulator) Distance(r int) float64 {
	return float64(r - a.Offset)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Binarize returns the pixels strictly brighter than the image mean.
func Binarize(img *imaging.Image) *imaging.Mask {
	mean := img.Mean()
	out := imaging.NewMask(img.Width, img.Height)
	for i, v := range img.Pix {
		out.Pix[i] = v > mean
	}
	return out
}

// HoughTransform votes every edge pixel into a (distance, angle) table.
//
// For each edge pixel (x, y) and each angle θ, the cell at distance
// round(x*cos θ + y*sin θ) receives one vote. Distances span
// [-offset, offset] where offset is the ceiling of the image diagonal.
func HoughTransform(edges *imaging.Mask, angles []float64) *Accumulator {
	offset := int(math.Ceil(math.Hypot(float64(edges.Width), float64(edges.Height))))
	acc := &Accumulator{
		Rows:   2*offset + 1,
		Cols:   len(angles),
		Angles: angles,
		Offset: offset,
	}
	acc.Votes = make([]int, acc.Rows*acc.Cols)

	cos := make([]float64, len(angles))
	sin := make([]float64, len(angles))
	for j, a := range angles {
		cos[j] = math.Cos(a)
		sin[j] = math.Sin(a)
	}

	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			if !edges.Pix[y*edges.Width+x] {
				continue
			}
			for j := range angles {
				r := int(math.Round(cos[j]*float64(x)+sin[j]*float64(y))) + offset
				acc.Votes[r*acc.Cols+j]++
			}
		}
	}
	return acc
}

// Peak is an accumulator cell selected as a line.
type Peak struct {
	Row   int
	Col   int
	Votes int
}

// Peaks extracts prominent, well-separated maxima from the accumulator.
//
// # Algorithm
//
//  1. Compute the running maximum over a (2*minDistance+1) x (2*minAngle+1)
//     window, treating cells beyond the table as zero
//  2. Keep cells equal to their window maximum and above the threshold
//     (thresholdRatio times the table maximum)
//  3. Group surviving cells into 8-connected blobs and visit the blobs from
//     the highest maximum down
//  4. Accept a blob's rounded centroid if its windowed maximum still exceeds
//     the threshold, then zero the window around it. The angle axis wraps
//     around, mirroring the distance axis, because θ = -π/2 and θ = π/2
//     describe the same line family
func (a *Accumulator) Peaks(minDistance, minAngle int, thresholdRatio float64) []Peak {
	rows, cols := a.Rows, a.Cols
	if rows == 0 || cols == 0 {
		return nil
	}
	if minAngle > cols {
		minAngle = cols
	}

	maxVotes := 0
	for _, v := range a.Votes {
		if v > maxVotes {
			maxVotes = v
		}
	}
	threshold := thresholdRatio * float64(maxVotes)

	windowMax := maximumFilter(a.Votes, rows, cols, minDistance, minAngle)

	candidates := imaging.NewMask(cols, rows)
	for i, v := range a.Votes {
		if v == windowMax[i] && float64(v) > threshold {
			candidates.Pix[i] = true
		}
	}

	comps := region.Label(candidates)
	type blob struct {
		maxVal int
		sumRow float64
		sumCol float64
		pixels int
	}
	blobs := make([]blob, comps.Count())
	for i, id := range comps.IDs {
		if id == 0 {
			continue
		}
		b := &blobs[id-1]
		r, c := i/cols, i%cols
		b.sumRow += float64(r)
		b.sumCol += float64(c)
		b.pixels++
		if windowMax[i] > b.maxVal {
			b.maxVal = windowMax[i]
		}
	}

	// Ascending stable sort then reversal: ties go to the later blob.
	sort.SliceStable(blobs, func(i, j int) bool {
		return blobs[i].maxVal < blobs[j].maxVal
	})
	for i, j := 0, len(blobs)-1; i < j; i, j = i+1, j-1 {
		blobs[i], blobs[j] = blobs[j], blobs[i]
	}

	var peaks []Peak
	for _, b := range blobs {
		r := int(math.RoundToEven(b.sumRow / float64(b.pixels)))
		c := int(math.RoundToEven(b.sumCol / float64(b.pixels)))
		votes := windowMax[r*cols+c]
		if float64(votes) <= threshold {
			continue
		}

		for dr := -minDistance; dr <= minDistance; dr++ {
			nr := r + dr
			if nr < 0 || nr >= rows {
				continue
			}
			for dc := -minAngle; dc <= minAngle; dc++ {
				sr, sc := nr, c+dc
				if sc < 0 {
					sr = rows - sr
					sc += cols
				} else if sc >= cols {
					sr = rows - sr
					sc -= cols
				}
				if sr < 0 || sr >= rows || sc < 0 || sc >= cols {
					continue
				}
				windowMax[sr*cols+sc] = 0
			}
		}

		peaks = append(peaks, Peak{Row: r, Col: c, Votes: votes})
	}
	return peaks
}

// maximumFilter returns the maximum over a (2*ry+1) x (2*rx+1) window around
// every cell, with zero outside the table.
func maximumFilter(values []int, rows, cols, ry, rx int) []int {
	tmp := make([]int, len(values))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m := 0
			for d := -ry; d <= ry; d++ {
				rr := r + d
				if rr < 0 || rr >= rows {
					continue
				}
				if v := values[rr*cols+c]; v > m {
					m = v
				}
			}
			tmp[r*cols+c] = m
		}
	}

	out := make([]int, len(values))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m := 0
			for d := -rx; d <= rx; d++ {
				cc := c + d
				if cc < 0 || cc >= cols {
					continue
				}
				if v := tmp[r*cols+cc]; v > m {
					m = v
				}
			}
			out[r*cols+c] = m
		}
	}
	return out
}

// DetectLines finds the dominant straight lines along the boundary of the
// bright structures in img.
//
// Parameters:
//   - img: Source image. It is binarized at its mean intensity first.
//   - opts: Edge and accumulator settings. See DefaultHoughOptions.
//
// Returns:
//   - *LinesResult: One line per accepted accumulator peak, ordered by peak
//     height, with the supporting edge segment traced for each.
//   - *imaging.Mask: The Canny edge map the lines were voted from.
func DetectLines(img *imaging.Image, opts HoughOptions) (*LinesResult, *imaging.Mask) {
	binary := imaging.NewImage(img.Width, img.Height, 1)
	copy(binary.Pix, Binarize(img).Values())
	edges := Canny(binary, opts.Canny)

	acc := HoughTransform(edges, Linspace(-math.Pi/2, math.Pi/2, opts.Angles))
	peaks := acc.Peaks(opts.MinDistance, opts.MinAngle, opts.ThresholdRatio)

	lines := make([]Line, 0, len(peaks))
	for _, p := range peaks {
		line := Line{
			Angle:    acc.Angles[p.Col],
			Distance: acc.Distance(p.Row),
			Votes:    p.Votes,
		}
		traceSegment(edges, &line)
		lines = append(lines, line)
	}

	return &LinesResult{
		Lines: lines,
		Count: len(lines),
	}, edges
}

// HoughLineCount returns the number of lines found by DetectLines.
func HoughLineCount(img *imaging.Image, opts HoughOptions) int {
	result, _ := DetectLines(img, opts)
	return result.Count
}

// traceSegment finds the extreme edge pixels within two pixels of the line,
// measured along the line direction.
func traceSegment(edges *imaging.Mask, line *Line) {
	cosA := math.Cos(line.Angle)
	sinA := math.Sin(line.Angle)

	found := false
	minT, maxT := math.MaxFloat64, -math.MaxFloat64
	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			if !edges.Pix[y*edges.Width+x] {
				continue
			}
			dist := math.Abs(float64(x)*cosA + float64(y)*sinA - line.Distance)
			if dist >= 2.0 {
				continue
			}
			// Position along the line direction (-sin, cos).
			t := -float64(x)*sinA + float64(y)*cosA
			if t < minT {
				minT = t
				line.Start = Point{X: x, Y: y}
			}
			if t > maxT {
				maxT = t
				line.End = Point{X: x, Y: y}
			}
			found = true
		}
	}

	if found {
		dx := float64(line.End.X - line.Start.X)
		dy := float64(line.End.Y - line.Start.Y)
		line.Length = math.Round(math.Sqrt(dx*dx+dy*dy)*10) / 10
	}
}
