package region

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Offset is a footprint element relative to the pixel being filtered.
type Offset struct {
	DX, DY int
}

// DiskFootprint returns the offsets with dx²+dy² <= radius².
func DiskFootprint(radius int) []Offset {
	var fp []Offset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				fp = append(fp, Offset{DX: dx, DY: dy})
			}
		}
	}
	return fp
}

// SquareFootprint returns the offsets of a (2r+1)x(2r+1) square.
func SquareFootprint(radius int) []Offset {
	var fp []Offset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			fp = append(fp, Offset{DX: dx, DY: dy})
		}
	}
	return fp
}

// Erode keeps a pixel only when every footprint neighbor is set.
//
// Under BorderConstant, neighbors beyond the frame are background; under
// BorderReflect and BorderNearest they are taken from the mirrored or
// replicated pixel.
func Erode(mask *imaging.Mask, fp []Offset, mode imaging.BorderMode) *imaging.Mask {
	return morph(mask, fp, mode, true)
}

// Dilate sets a pixel when any footprint neighbor is set. The footprint is
// reflected through the origin; symmetric footprints are unaffected.
func Dilate(mask *imaging.Mask, fp []Offset, mode imaging.BorderMode) *imaging.Mask {
	reflected := make([]Offset, len(fp))
	for i, o := range fp {
		reflected[i] = Offset{DX: -o.DX, DY: -o.DY}
	}
	return morph(mask, reflected, mode, false)
}

func morph(mask *imaging.Mask, fp []Offset, mode imaging.BorderMode, erode bool) *imaging.Mask {
	w, h := mask.Width, mask.Height
	out := imaging.NewMask(w, h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = probe(mask, x, y, fp, mode, erode)
			}
		}
	})
	return out
}

// probe reports whether all (erode) or any (dilate) footprint neighbors of
// (x, y) are set.
func probe(mask *imaging.Mask, x, y int, fp []Offset, mode imaging.BorderMode, all bool) bool {
	for _, o := range fp {
		v := sampleMask(mask, x+o.DX, y+o.DY, mode)
		if all && !v {
			return false
		}
		if !all && v {
			return true
		}
	}
	return all
}

// sampleMask reads mask at (x, y), resolving out-of-frame coordinates per
// mode. BorderConstant reads background.
func sampleMask(mask *imaging.Mask, x, y int, mode imaging.BorderMode) bool {
	if x >= 0 && x < mask.Width && y >= 0 && y < mask.Height {
		return mask.Pix[y*mask.Width+x]
	}
	switch mode {
	case imaging.BorderConstant:
		return false
	case imaging.BorderReflect:
		return mask.At(imaging.Reflect(x, mask.Width), imaging.Reflect(y, mask.Height))
	default:
		return mask.At(imaging.Clamp(x, mask.Width), imaging.Clamp(y, mask.Height))
	}
}
