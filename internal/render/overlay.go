package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/lesion-features/internal/detection"
	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Style selects how a layer is painted.
type Style int

const (
	// Fill blends the layer color over every mask pixel.
	Fill Style = iota
	// Stroke paints mask pixels solid, thickened by Options.StrokeWidth.
	Stroke
)

// Layer is one mask drawn on the overlay.
type Layer struct {
	Name  string
	Mask  *imaging.Mask
	Style Style
	Color colorful.Color
}

// Options controls overlay composition.
type Options struct {
	// Alpha is the opacity of filled layers (0.0 to 1.0).
	Alpha float64

	// StrokeWidth dilates stroked layers by this radius in pixels; 0 draws
	// them one pixel wide.
	StrokeWidth float64
}

// DefaultOptions returns the overlay settings used for exports.
func DefaultOptions() Options {
	return Options{Alpha: 0.35, StrokeWidth: 1}
}

// Palette returns n visually distinct colors evenly spaced in hue.
func Palette(n int) []colorful.Color {
	colors := make([]colorful.Color, n)
	for i := range colors {
		colors[i] = colorful.Hcl(float64(i)*360/float64(max(n, 1)), 0.7, 0.65).Clamped()
	}
	return colors
}

// Layers returns the derived masks of a sample in drawing order: the mask
// of every spiculation strategy that restricts the gradient field, followed
// by the Canny edges, the Hough segments and the initial and final snake when
// boundary is not nil.
func Layers(mask *imaging.Mask, opts features.SpiculationOptions, boundary *features.BoundaryResult) []Layer {
	var layers []Layer
	for _, s := range features.Strategies {
		m := features.StrategyMask(s, mask, opts)
		if m == nil {
			continue
		}
		layers = append(layers, Layer{Name: strategyName(s), Mask: m, Style: Fill})
	}

	if boundary != nil {
		w, h := mask.Width, mask.Height
		if boundary.Edges != nil {
			layers = append(layers, Layer{Name: "edges", Mask: boundary.Edges, Style: Stroke})
		}
		if boundary.Lines != nil {
			lines := imaging.NewMask(w, h)
			for _, l := range boundary.Lines.Lines {
				drawSegment(lines, float64(l.Start.X), float64(l.Start.Y), float64(l.End.X), float64(l.End.Y))
			}
			layers = append(layers, Layer{Name: "hough", Mask: lines, Style: Stroke})
		}
		if boundary.Snake != nil {
			layers = append(layers,
				Layer{Name: "snake_initial", Mask: Polyline(w, h, boundary.Snake.Initial), Style: Stroke},
				Layer{Name: "snake_final", Mask: Polyline(w, h, boundary.Snake.Final), Style: Stroke},
			)
		}
	}

	palette := Palette(len(layers))
	for i := range layers {
		layers[i].Color = palette[i]
	}
	return layers
}

func strategyName(s features.MaskStrategy) string {
	switch s {
	case features.MaskRegion:
		return "region"
	case features.MaskBorder:
		return "border"
	case features.MaskOpenedInverse:
		return "opened_inverse"
	}
	return s.String()
}

// Compose paints the layers over the 8-bit preview of img.
func Compose(img *imaging.Image, layers []Layer, opts Options) *image.RGBA {
	bounds := image.Rect(0, 0, img.Width, img.Height)
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img.ToGray(), image.Point{}, draw.Src)

	for _, layer := range layers {
		if layer.Mask == nil || layer.Mask.Width != img.Width || layer.Mask.Height != img.Height {
			continue
		}
		switch layer.Style {
		case Fill:
			fill(out, layer, opts.Alpha)
		case Stroke:
			stroke(out, layer, opts.StrokeWidth)
		}
	}
	return out
}

func fill(out *image.RGBA, layer Layer, alpha float64) {
	w := layer.Mask.Width
	for i, on := range layer.Mask.Pix {
		if !on {
			continue
		}
		x, y := i%w, i/w
		base, _ := colorful.MakeColor(out.RGBAAt(x, y))
		out.SetRGBA(x, y, toRGBA(base.BlendRgb(layer.Color, alpha)))
	}
}

func stroke(out *image.RGBA, layer Layer, width float64) {
	src := image.Image(layer.Mask.ToGray())
	if width > 0 {
		src = effect.Dilate(src, width)
	}
	c := toRGBA(layer.Color)
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, _, _, _ := src.At(x, y).RGBA(); r > 0x7fff {
				out.SetRGBA(x, y, c)
			}
		}
	}
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Polyline rasterizes a closed contour given in (row, col) coordinates into a
// width x height mask. Points outside the frame are clipped.
func Polyline(width, height int, points []detection.PointF) *imaging.Mask {
	m := imaging.NewMask(width, height)
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		drawSegment(m, a.Col, a.Row, b.Col, b.Row)
	}
	return m
}

// drawSegment sets the pixels of the segment from (x0, y0) to (x1, y1).
func drawSegment(m *imaging.Mask, x0, y0, x1, y1 float64) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		x := int(math.Round(x0 + t*(x1-x0)))
		y := int(math.Round(y0 + t*(y1-y0)))
		if x >= 0 && x < m.Width && y >= 0 && y < m.Height {
			m.Set(x, y, true)
		}
	}
}
