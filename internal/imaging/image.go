package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/segment"
)

// Image is a single-channel intensity grid stored row-major.
//
// Pixel values keep the range of the source data; Scale records the full-scale
// value of the source depth so that algorithms can work on the normalized
// [0, 1] range the same way regardless of whether the sample was 8-bit,
// 16-bit or already floating point:
//   - 255 for 8-bit sources
//   - 65535 for 16-bit sources
//   - 1 for float data
//
// Images are treated as read-only by every feature algorithm. Derived images
// (smoothed, rescaled) are always new values.
type Image struct {
	Width  int
	Height int
	Pix    []float64
	Scale  float64
}

// NewImage allocates a zero-filled image. A non-positive scale is treated as 1.
func NewImage(width, height int, scale float64) *Image {
	if scale <= 0 {
		scale = 1
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
		Scale:  scale,
	}
}

// At returns the value at column x, row y.
func (m *Image) At(x, y int) float64 {
	return m.Pix[y*m.Width+x]
}

// Set stores v at column x, row y.
func (m *Image) Set(x, y int, v float64) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := NewImage(m.Width, m.Height, m.Scale)
	copy(out.Pix, m.Pix)
	return out
}

// Float returns the pixel values divided by Scale.
func (m *Image) Float() []float64 {
	out := make([]float64, len(m.Pix))
	for i, v := range m.Pix {
		out[i] = v / m.Scale
	}
	return out
}

// IsInteger reports whether the image came from an integer pixel depth.
func (m *Image) IsInteger() bool {
	return m.Scale > 1
}

// Mask is a binary region grid with the same layout as Image.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether column x, row y is inside the region.
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

// Set marks column x, row y.
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// Area returns the number of foreground pixels.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Bounds returns the smallest rectangle containing every foreground pixel,
// with an exclusive maximum. An empty mask returns the zero rectangle.
func (m *Mask) Bounds() image.Rectangle {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Values returns the mask as 0/1 floats.
func (m *Mask) Values() []float64 {
	out := make([]float64, len(m.Pix))
	for i, v := range m.Pix {
		if v {
			out[i] = 1
		}
	}
	return out
}

// SameShape reports whether the image and mask share dimensions.
func SameShape(img *Image, mask *Mask) bool {
	return img.Width == mask.Width && img.Height == mask.Height
}

// FromImage converts a decoded image into an intensity grid.
//
// Grayscale sources keep their native values. Color sources are reduced to
// luminance using ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B) at 8-bit
// depth, or at 16-bit depth for 64-bit color models.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch img := src.(type) {
	case *image.Gray16:
		out := NewImage(width, height, 0xffff)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(x, y, float64(img.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
		return out
	case *image.Gray:
		out := NewImage(width, height, 0xff)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(x, y, float64(img.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
		return out
	}

	wide := false
	switch src.ColorModel() {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model:
		wide = true
	}

	scale := 255.0
	if wide {
		scale = 0xffff
	}
	out := NewImage(width, height, scale)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := src.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			if !wide {
				r, g, b = r>>8, g>>8, b>>8
			}
			out.Set(x, y, 0.299*float64(r)+0.587*float64(g)+0.114*float64(b))
		}
	}
	return out
}

// MaskFromImage converts a decoded mask image into a binary region.
// Every nonzero pixel is foreground.
func MaskFromImage(src image.Image) *Mask {
	bounds := src.Bounds()
	out := NewMask(bounds.Dx(), bounds.Dy())

	// 16-bit masks may use small label values that would vanish when reduced
	// to 8 bits, so they are tested directly.
	if g16, ok := src.(*image.Gray16); ok {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Set(x, y, g16.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y != 0)
			}
		}
		return out
	}

	binary := segment.Threshold(src, 1)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, binary.Pix[y*binary.Stride+x] != 0)
		}
	}
	return out
}

// MaskFromNonzero returns the mask of nonzero image pixels.
func MaskFromNonzero(img *Image) *Mask {
	out := NewMask(img.Width, img.Height)
	for i, v := range img.Pix {
		out.Pix[i] = v != 0
	}
	return out
}

// ToGray converts the image to an 8-bit preview, stretching [0, Scale] to
// [0, 255].
func (m *Image) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		f := v / m.Scale
		if f < 0 {
			f = 0
		} else if f > 1 {
			f = 1
		}
		out.Pix[i] = uint8(f*255 + 0.5)
	}
	return out
}

// ToGray returns the mask as a black/white image.
func (m *Mask) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = 0xff
		}
	}
	return out
}

// CheckShape returns an error describing a dimension mismatch.
func CheckShape(img *Image, mask *Mask) error {
	if !SameShape(img, mask) {
		return fmt.Errorf("image is %dx%d but mask is %dx%d",
			img.Width, img.Height, mask.Width, mask.Height)
	}
	return nil
}
