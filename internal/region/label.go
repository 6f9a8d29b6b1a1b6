package region

import (
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Components is an 8-connected labeling of a mask.
type Components struct {
	Width  int
	Height int

	// IDs holds the component label of each pixel, 1-based. Background is 0.
	IDs []int

	// Sizes[i] is the pixel count of component i+1.
	Sizes []int
}

// Count returns the number of components.
func (c *Components) Count() int {
	return len(c.Sizes)
}

// Mask returns the pixels carrying label id.
func (c *Components) Mask(id int) *imaging.Mask {
	out := imaging.NewMask(c.Width, c.Height)
	for i, l := range c.IDs {
		out.Pix[i] = l == id
	}
	return out
}

// Label assigns 8-connected component labels in raster order: the component
// containing the first foreground pixel (row-major) is label 1.
func Label(mask *imaging.Mask) *Components {
	w, h := mask.Width, mask.Height
	comps := &Components{
		Width:  w,
		Height: h,
		IDs:    make([]int, w*h),
	}

	var stack []int
	for start, v := range mask.Pix {
		if !v || comps.IDs[start] != 0 {
			continue
		}
		id := len(comps.Sizes) + 1
		size := 0
		comps.IDs[start] = id
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++

			px, py := p%w, p/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := px+dx, py+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					n := ny*w + nx
					if mask.Pix[n] && comps.IDs[n] == 0 {
						comps.IDs[n] = id
						stack = append(stack, n)
					}
				}
			}
		}
		comps.Sizes = append(comps.Sizes, size)
	}
	return comps
}

// Largest returns the biggest 8-connected component of mask. Ties go to the
// component found first in raster order. An empty mask returns an empty mask.
func Largest(mask *imaging.Mask) *imaging.Mask {
	comps := Label(mask)
	best := 0
	for i, size := range comps.Sizes {
		if best == 0 || size > comps.Sizes[best-1] {
			best = i + 1
		}
	}
	if best == 0 {
		return imaging.NewMask(mask.Width, mask.Height)
	}
	return comps.Mask(best)
}

// Centroid returns the mean row and column of the foreground pixels and their
// count. An empty mask returns zero area.
func Centroid(mask *imaging.Mask) (row, col float64, area int) {
	var sumRow, sumCol float64
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.Pix[y*mask.Width+x] {
				sumRow += float64(y)
				sumCol += float64(x)
				area++
			}
		}
	}
	if area == 0 {
		return 0, 0, 0
	}
	return sumRow / float64(area), sumCol / float64(area), area
}
