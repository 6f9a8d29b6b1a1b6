package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains an encoded preview of an image region.
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts the rectangle (x1,y1)-(x2,y2) from img, optionally rescaled,
// and encodes it as base64 PNG.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           x1,
		Y:           y1,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropToMask crops img to the bounding box of mask grown by margin pixels on
// every side, clipped to the frame. An empty mask yields the whole image.
func CropToMask(img image.Image, mask *Mask, margin int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	if bounds.Dx() != mask.Width || bounds.Dy() != mask.Height {
		return nil, fmt.Errorf("mask is %dx%d but image is %dx%d",
			mask.Width, mask.Height, bounds.Dx(), bounds.Dy())
	}

	box := mask.Bounds()
	if box.Empty() {
		box = image.Rect(0, 0, mask.Width, mask.Height)
	}
	box = box.Inset(-margin).Intersect(image.Rect(0, 0, mask.Width, mask.Height))
	box = box.Add(bounds.Min)

	return Crop(img, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, scale)
}
