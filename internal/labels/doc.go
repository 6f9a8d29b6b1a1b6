// Package labels finds and removes burned-in scanner annotations.
//
// Digitized films often carry printed labels (patient codes, view markers,
// scanner names) on the black border. They are bright and nonzero, so left in
// place they stretch the bounding box of the image and distort the iou
// feature.
//
// # Detection
//
// DetectCandidates slides text-sized windows over the image and keeps those
// with medium edge density, mostly horizontal edge runs and a dark surround.
// When the binary is built with the tesseract tag, a TesseractConfirmer can
// additionally require Tesseract to read words in each candidate.
//
// # Removal
//
// Scrubber implements the annotation scrubber used by the feature extractor:
// it returns a copy of the image with every confirmed region set to 0.
package labels

import "errors"

// ErrOCRUnavailable is returned when OCR confirmation is requested from a
// binary built without the tesseract tag.
var ErrOCRUnavailable = errors.New("labels: built without tesseract support")

// Info describes the OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
	Error     string `json:"error,omitempty"`
}
