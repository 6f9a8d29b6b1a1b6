package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// OverlayResult contains an encoded overlay image.
type OverlayResult struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	Layers      []string `json:"layers"`
}

// Encode composes the layers over img and returns the overlay as base64 PNG.
func Encode(img *imaging.Image, layers []Layer, opts Options) (*OverlayResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Compose(img, layers, opts)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	return &OverlayResult{
		Width:       img.Width,
		Height:      img.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Layers:      names,
	}, nil
}

// Export writes one black/white PNG per layer and a composed overlay into
// dir, creating it if needed. Files are named <id>_<layer>.png and
// <id>_overlay.png. It returns the written paths in that order.
func Export(dir, id string, img *imaging.Image, layers []Layer, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(layers)+1)
	save := func(name string, out image.Image) error {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", id, name))
		if err := imgio.Save(path, out, imgio.PNGEncoder()); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	}

	for _, l := range layers {
		if err := save(l.Name, l.Mask.ToGray()); err != nil {
			return nil, err
		}
	}
	if err := save("overlay", Compose(img, layers, opts)); err != nil {
		return nil, err
	}
	return paths, nil
}
