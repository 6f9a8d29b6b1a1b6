//go:build tesseract

package labels

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	lfimaging "github.com/ironsheep/lesion-features/internal/imaging"
)

// TesseractConfirmer accepts a candidate region when Tesseract reads at least
// one word in it with enough confidence.
type TesseractConfirmer struct {
	// Language is the Tesseract language code (e.g., "eng"). The corresponding
	// language data must be installed on the system.
	Language string

	// MinConfidence is the lowest mean word confidence (0.0 to 1.0) accepted.
	MinConfidence float64
}

// NewTesseractConfirmer returns a confirmer for the given language.
func NewTesseractConfirmer(language string) (Confirmer, error) {
	if language == "" {
		language = "eng"
	}
	return &TesseractConfirmer{Language: language, MinConfidence: 0.5}, nil
}

// Confirm runs word-level OCR on the region.
//
// The region is cropped from the 8-bit preview of img and handed to
// Tesseract as PNG bytes, so no temporary file is written.
func (t *TesseractConfirmer) Confirm(ctx context.Context, img *lfimaging.Image, r Region) (Region, bool, error) {
	if err := ctx.Err(); err != nil {
		return r, false, err
	}

	cropped := imaging.Crop(img.ToGray(), r.Bounds.Rect())
	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return r, false, fmt.Errorf("failed to encode region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return r, false, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return r, false, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return r, false, fmt.Errorf("OCR failed: %w", err)
	}

	var words []string
	total := 0.0
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		words = append(words, word)
		total += box.Confidence / 100.0
	}
	if len(words) == 0 {
		return r, false, nil
	}

	confidence := total / float64(len(words))
	if confidence < t.MinConfidence {
		return r, false, nil
	}
	r.Text = strings.Join(words, " ")
	return r, true, nil
}

// OCRInfo reports the Tesseract version linked into the binary.
func OCRInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()
	return Info{
		Available: true,
		Version:   client.Version(),
		Backend:   "gosseract",
	}
}
