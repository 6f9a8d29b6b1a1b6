package region

import (
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Box is an axis-aligned bounding box with inclusive bounds.
type Box struct {
	MinRow int  `json:"min_row"`
	MaxRow int  `json:"max_row"`
	MinCol int  `json:"min_col"`
	MaxCol int  `json:"max_col"`
	Empty  bool `json:"empty"`
}

// Area returns the number of pixels covered by the box.
func (b Box) Area() int {
	if b.Empty {
		return 0
	}
	return (b.MaxRow - b.MinRow + 1) * (b.MaxCol - b.MinCol + 1)
}

// MaskBox returns the bounding box of the foreground pixels of mask.
func MaskBox(mask *imaging.Mask) Box {
	r := mask.Bounds()
	if r.Empty() {
		return Box{Empty: true}
	}
	return Box{
		MinRow: r.Min.Y,
		MaxRow: r.Max.Y - 1,
		MinCol: r.Min.X,
		MaxCol: r.Max.X - 1,
	}
}

// NonzeroBox returns the bounding box of the nonzero pixels of img.
func NonzeroBox(img *imaging.Image) Box {
	return MaskBox(imaging.MaskFromNonzero(img))
}

// IoU returns the intersection over union of two inclusive boxes. Empty
// boxes and a zero union give 0.
func IoU(a, b Box) float64 {
	if a.Empty || b.Empty {
		return 0
	}
	dr := min(a.MaxRow, b.MaxRow) - max(a.MinRow, b.MinRow) + 1
	dc := min(a.MaxCol, b.MaxCol) - max(a.MinCol, b.MinCol) + 1
	inter := max(0, dr) * max(0, dc)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
