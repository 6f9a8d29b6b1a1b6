//go:build !tesseract

package labels

// NewTesseractConfirmer reports that OCR support was not compiled in. Build
// with -tags tesseract to link gosseract.
func NewTesseractConfirmer(language string) (Confirmer, error) {
	return nil, ErrOCRUnavailable
}

// OCRInfo reports that OCR is unavailable.
func OCRInfo() Info {
	return Info{
		Available: false,
		Backend:   "none",
		Error:     ErrOCRUnavailable.Error(),
	}
}
