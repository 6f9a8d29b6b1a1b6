package labels

import (
	"context"
	"fmt"
	"log"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// Confirmer decides whether a candidate region really holds text.
type Confirmer interface {
	// Confirm returns the region, possibly with its Text filled in, and
	// whether it should be treated as an annotation.
	Confirm(ctx context.Context, img *imaging.Image, r Region) (Region, bool, error)
}

// Scrubber detects burned-in annotations and blanks them.
type Scrubber struct {
	Options DetectOptions

	// Confirmer, when set, must accept a candidate before it is blanked.
	Confirmer Confirmer

	// Verbose logs every blanked region.
	Verbose bool
}

// NewScrubber returns a scrubber using the given heuristic settings and an
// optional OCR confirmer.
func NewScrubber(opts DetectOptions, confirmer Confirmer) *Scrubber {
	return &Scrubber{Options: opts, Confirmer: confirmer}
}

// Detect returns the annotation regions of img.
func (s *Scrubber) Detect(ctx context.Context, img *imaging.Image) ([]Region, error) {
	candidates := DetectCandidates(img, s.Options)
	if s.Confirmer == nil {
		return candidates, nil
	}

	confirmed := make([]Region, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok, err := s.Confirmer.Confirm(ctx, img, c)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm region %v: %w", c.Bounds, err)
		}
		if ok {
			confirmed = append(confirmed, r)
		}
	}
	return confirmed, nil
}

// Scrub returns a copy of img with every detected annotation set to 0. The
// input is not modified.
func (s *Scrubber) Scrub(ctx context.Context, img *imaging.Image) (*imaging.Image, error) {
	regions, err := s.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	if s.Verbose {
		for _, r := range regions {
			log.Printf("blanking annotation %v (confidence %.3f) %q", r.Bounds, r.Confidence, r.Text)
		}
	}
	return Blank(img, regions), nil
}

// Blank returns a copy of img with the pixels of every region set to 0.
// Regions are clipped to the frame.
func Blank(img *imaging.Image, regions []Region) *imaging.Image {
	out := img.Clone()
	for _, r := range regions {
		x1, y1 := max(r.Bounds.X1, 0), max(r.Bounds.Y1, 0)
		x2, y2 := min(r.Bounds.X2, img.Width), min(r.Bounds.Y2, img.Height)
		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				out.Pix[y*out.Width+x] = 0
			}
		}
	}
	return out
}
