package region

import (
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// DefaultBorderWidth is the width in pixels of the border band.
const DefaultBorderWidth = 3.0

// DefaultOpeningRadius is the disk radius used to open the inverse mask.
const DefaultOpeningRadius = 5

// BorderBand returns the pixels of mask whose distance to the nearest
// background pixel lies in (0, width].
//
// A region that covers the entire frame has no background, so every distance
// is infinite and the band is empty.
func BorderBand(mask *imaging.Mask, width float64) *imaging.Mask {
	dist := DistanceTransform(mask)
	out := imaging.NewMask(mask.Width, mask.Height)
	for i, d := range dist {
		out.Pix[i] = d > 0 && d <= width
	}
	return out
}

// Inverse returns the complement of mask.
func Inverse(mask *imaging.Mask) *imaging.Mask {
	out := imaging.NewMask(mask.Width, mask.Height)
	for i, v := range mask.Pix {
		out.Pix[i] = !v
	}
	return out
}

// OpenedInverse returns the inverse of mask after a morphological opening
// (erosion followed by dilation) with a disk footprint of the given radius.
// Samples beyond the frame are mirrored, so a region touching the edge does
// not erode the background along that edge.
func OpenedInverse(mask *imaging.Mask, radius int) *imaging.Mask {
	fp := DiskFootprint(radius)
	return Dilate(Erode(Inverse(mask), fp, imaging.BorderReflect), fp, imaging.BorderReflect)
}

// ErodeSquare erodes mask with a 3x3 square footprint. Pixels beyond the frame
// count as background, so foreground touching the frame is removed.
func ErodeSquare(mask *imaging.Mask) *imaging.Mask {
	return Erode(mask, SquareFootprint(1), imaging.BorderConstant)
}

// Disk returns a mask of the pixels whose Euclidean distance to
// (centerRow, centerCol) is at most radius.
func Disk(width, height int, centerRow, centerCol, radius float64) *imaging.Mask {
	out := imaging.NewMask(width, height)
	r2 := radius * radius
	for y := 0; y < height; y++ {
		dy := float64(y) - centerRow
		for x := 0; x < width; x++ {
			dx := float64(x) - centerCol
			out.Pix[y*width+x] = dx*dx+dy*dy <= r2
		}
	}
	return out
}

// Intersect returns the pixels set in both masks. The masks must share
// dimensions.
func Intersect(a, b *imaging.Mask) *imaging.Mask {
	out := imaging.NewMask(a.Width, a.Height)
	for i := range a.Pix {
		out.Pix[i] = a.Pix[i] && b.Pix[i]
	}
	return out
}
