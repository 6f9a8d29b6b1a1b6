package render

import (
	"encoding/base64"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lesion-features/internal/detection"
	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
)

func squareSample(size, x0, y0, side int) (*imaging.Image, *imaging.Mask) {
	img := imaging.NewImage(size, size, 255)
	mask := imaging.NewMask(size, size)
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			img.Set(x, y, 180)
			mask.Set(x, y, true)
		}
	}
	return img, mask
}

func TestPalette(t *testing.T) {
	colors := Palette(6)
	require.Len(t, colors, 6)
	seen := make(map[color.RGBA]bool)
	for _, c := range colors {
		assert.True(t, c.IsValid())
		seen[toRGBA(c)] = true
	}
	assert.Len(t, seen, 6)
	assert.Empty(t, Palette(0))
}

func TestLayers_StrategyMasks(t *testing.T) {
	_, mask := squareSample(40, 10, 10, 20)
	layers := Layers(mask, features.DefaultSpiculationOptions(), nil)

	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
		assert.Equal(t, Fill, l.Style)
	}
	assert.Equal(t, []string{"region", "border", "opened_inverse"}, names)
	assert.Same(t, mask, layers[0].Mask)
	assert.NotEqual(t, layers[0].Color, layers[1].Color)
}

func TestLayers_Boundary(t *testing.T) {
	_, mask := squareSample(40, 10, 10, 20)
	edges := imaging.NewMask(40, 40)
	edges.Set(3, 3, true)
	boundary := &features.BoundaryResult{
		Edges: edges,
		Lines: &detection.LinesResult{
			Lines: []detection.Line{{Start: detection.Point{X: 0, Y: 5}, End: detection.Point{X: 9, Y: 5}}},
			Count: 1,
		},
		Snake: &detection.SnakeResult{
			Initial: detection.InitialCircle(16, 20, 20, 8),
			Final:   detection.InitialCircle(16, 20, 20, 6),
		},
	}

	layers := Layers(mask, features.DefaultSpiculationOptions(), boundary)
	require.Len(t, layers, 7)

	byName := make(map[string]Layer)
	for _, l := range layers {
		byName[l.Name] = l
	}
	assert.Equal(t, Stroke, byName["edges"].Style)
	for x := 0; x <= 9; x++ {
		assert.True(t, byName["hough"].Mask.At(x, 5), "hough segment pixel %d", x)
	}
	assert.True(t, byName["snake_initial"].Mask.At(28, 20))
	assert.True(t, byName["snake_final"].Mask.At(26, 20))
	assert.False(t, byName["snake_final"].Mask.At(20, 20))
}

func TestPolyline(t *testing.T) {
	square := []detection.PointF{{Row: 2, Col: 2}, {Row: 2, Col: 7}, {Row: 7, Col: 7}, {Row: 7, Col: 2}}
	m := Polyline(10, 10, square)

	assert.True(t, m.At(2, 2))
	assert.True(t, m.At(7, 7))
	assert.True(t, m.At(2, 5), "closing edge")
	assert.False(t, m.At(5, 5), "interior")
	assert.Equal(t, 20, m.Area())

	clipped := Polyline(10, 10, []detection.PointF{{Row: -5, Col: 5}, {Row: 5, Col: 5}})
	assert.True(t, clipped.At(5, 0))
	assert.True(t, clipped.At(5, 5))
}

func TestCompose(t *testing.T) {
	img, mask := squareSample(20, 5, 5, 10)
	dot := imaging.NewMask(20, 20)
	dot.Set(2, 2, true)
	red := Palette(1)[0]

	t.Run("fill blends", func(t *testing.T) {
		out := Compose(img, []Layer{{Name: "region", Mask: mask, Style: Fill, Color: red}}, Options{Alpha: 0.5})
		inside := out.RGBAAt(10, 10)
		outside := out.RGBAAt(0, 0)
		assert.False(t, inside.R == inside.G && inside.G == inside.B, "blended pixel keeps gray")
		assert.Equal(t, color.RGBA{0, 0, 0, 255}, outside)
	})

	t.Run("stroke paints solid", func(t *testing.T) {
		out := Compose(img, []Layer{{Name: "dot", Mask: dot, Style: Stroke, Color: red}}, Options{})
		assert.Equal(t, toRGBA(red), out.RGBAAt(2, 2))
		assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(3, 2))
	})

	t.Run("stroke dilates", func(t *testing.T) {
		out := Compose(img, []Layer{{Name: "dot", Mask: dot, Style: Stroke, Color: red}}, Options{StrokeWidth: 1})
		assert.Equal(t, toRGBA(red), out.RGBAAt(2, 2))
		assert.Equal(t, toRGBA(red), out.RGBAAt(3, 2))
		assert.NotEqual(t, toRGBA(red), out.RGBAAt(12, 12))
	})

	t.Run("mismatched layer skipped", func(t *testing.T) {
		out := Compose(img, []Layer{{Name: "small", Mask: imaging.NewMask(3, 3), Style: Fill, Color: red}}, DefaultOptions())
		assert.Equal(t, img.ToGray().GrayAt(10, 10).Y, out.RGBAAt(10, 10).R)
	})
}

func TestEncode(t *testing.T) {
	img, mask := squareSample(30, 5, 5, 12)
	layers := Layers(mask, features.DefaultSpiculationOptions(), nil)

	result, err := Encode(img, layers, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 30, result.Width)
	assert.Equal(t, "image/png", result.MimeType)
	assert.Equal(t, []string{"region", "border", "opened_inverse"}, result.Layers)

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	require.NoError(t, err)
	overlay, err := png.Decode(strings.NewReader(string(decoded)))
	require.NoError(t, err)
	assert.Equal(t, 30, overlay.Bounds().Dx())
}

func TestExport(t *testing.T) {
	img, mask := squareSample(30, 5, 5, 12)
	layers := Layers(mask, features.DefaultSpiculationOptions(), nil)
	dir := filepath.Join(t.TempDir(), "masks")

	paths, err := Export(dir, "case_7", img, layers, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "case_7_region.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "case_7_overlay.png"), paths[3])

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	regionPNG, err := png.Decode(f)
	require.NoError(t, err)
	r, _, _, _ := regionPNG.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = regionPNG.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r)
}
