package labels

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Rect returns the bounds as an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Region is a rectangle that likely holds a burned-in annotation.
type Region struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
	Area       int     `json:"area"`

	// Text is the recognized content when OCR confirmed the region.
	Text string `json:"text,omitempty"`
}

// DetectOptions tunes the annotation heuristic.
type DetectOptions struct {
	// MinConfidence drops candidate windows scoring below it (0.0 to 1.0).
	MinConfidence float64

	// EdgeThreshold is the intensity step, as a fraction of full scale, that
	// marks an edge pixel.
	EdgeThreshold float64

	// DarkLevel is the intensity, as a fraction of full scale, below which a
	// pixel counts as background.
	DarkLevel float64

	// MinDarkFraction is the share of background pixels a window needs.
	// Scanner labels sit on the black film border; breast tissue does not.
	MinDarkFraction float64
}

// DefaultDetectOptions returns the settings used for mammography scans.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MinConfidence:   0.3,
		EdgeThreshold:   30.0 / 255.0,
		DarkLevel:       0.05,
		MinDarkFraction: 0.5,
	}
}

// windowSizes are the sliding windows tried, in pixels.
var windowSizes = []struct{ w, h int }{
	{100, 30}, // Small text
	{150, 40}, // Medium text
	{200, 50}, // Large text
	{80, 25},  // Very small text
}

// DetectCandidates finds windows that look like burned-in text.
//
// This is a heuristic that looks for areas with medium edge density, mostly
// horizontal structure and a dark surround, the signature of scanner labels
// printed on the film border.
//
// # Algorithm
//
//  1. Mark edge pixels where the step to the right or lower neighbor exceeds
//     EdgeThreshold
//  2. Slide windows of several text sizes with half-window steps
//  3. Keep windows with edge density in [0.05, 0.4] and at least
//     MinDarkFraction background pixels
//  4. Score horizontalScore * (1 - |density - 0.2| / 0.2)
//  5. Merge overlapping windows, keeping the best score
//
// Returns the merged regions sorted by confidence, highest first.
func DetectCandidates(img *imaging.Image, opts DetectOptions) []Region {
	width, height := img.Width, img.Height
	edges := detectEdges(img, opts.EdgeThreshold)
	dark := opts.DarkLevel * img.Scale

	candidates := make([]Region, 0)
	for _, ws := range windowSizes {
		stepX := ws.w / 2
		stepY := ws.h / 2

		for y := 0; y+ws.h <= height; y += stepY {
			for x := 0; x+ws.w <= width; x += stepX {
				edgeCount, darkCount := 0, 0
				for wy := y; wy < y+ws.h; wy++ {
					for wx := x; wx < x+ws.w; wx++ {
						i := wy*width + wx
						if edges[i] {
							edgeCount++
						}
						if img.Pix[i] <= dark {
							darkCount++
						}
					}
				}

				area := ws.w * ws.h
				density := float64(edgeCount) / float64(area)
				if density < 0.05 || density > 0.4 {
					continue
				}
				if float64(darkCount)/float64(area) < opts.MinDarkFraction {
					continue
				}

				horizontalScore := calculateHorizontalScore(edges, width, x, y, ws.w, ws.h)
				confidence := horizontalScore * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence < opts.MinConfidence {
					continue
				}

				candidates = append(candidates, Region{
					Bounds:     Bounds{X1: x, Y1: y, X2: x + ws.w, Y2: y + ws.h},
					Confidence: math.Round(confidence*1000) / 1000,
					Area:       area,
				})
			}
		}
	}

	merged := mergeOverlappingRegions(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// detectEdges marks pixels whose step to the right or lower neighbor exceeds
// threshold (a fraction of full scale). Frame pixels are never edges.
func detectEdges(img *imaging.Image, threshold float64) []bool {
	w, h := img.Width, img.Height
	edges := make([]bool, w*h)
	limit := threshold * img.Scale
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			dx := math.Abs(img.Pix[i] - img.Pix[i+1])
			dy := math.Abs(img.Pix[i] - img.Pix[i+w])
			edges[i] = dx > limit || dy > limit
		}
	}
	return edges
}

// calculateHorizontalScore returns the share of edge runs that lie along rows.
// Text strokes cross each row many times, so text scores high.
func calculateHorizontalScore(edges []bool, stride, x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row*stride+col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row*stride+col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlappingRegions folds each region into the first merged region it
// overlaps.
func mergeOverlappingRegions(regions []Region) []Region {
	merged := make([]Region, 0, len(regions))
	for _, r := range regions {
		found := false
		for i := range merged {
			if regionsOverlap(r.Bounds, merged[i].Bounds) {
				merged[i].Bounds = mergeBounds(r.Bounds, merged[i].Bounds)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				merged[i].Area = (merged[i].Bounds.X2 - merged[i].Bounds.X1) *
					(merged[i].Bounds.Y2 - merged[i].Bounds.Y1)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, r)
		}
	}
	return merged
}

func regionsOverlap(a, b Bounds) bool {
	return a.X1 < b.X2 && a.X2 > b.X1 && a.Y1 < b.Y2 && a.Y2 > b.Y1
}

func mergeBounds(a, b Bounds) Bounds {
	return Bounds{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}
