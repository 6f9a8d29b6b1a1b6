package features

import (
	"fmt"

	"github.com/ironsheep/lesion-features/internal/gradient"
	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// MaskStrategy selects the pixels a spiculation variant is measured on.
type MaskStrategy int

const (
	// MaskRegion keeps the lesion itself (variant A).
	MaskRegion MaskStrategy = iota
	// MaskBorder keeps the band just inside the lesion outline (variant B).
	MaskBorder
	// MaskWhole uses the whole frame (variant C).
	MaskWhole
	// MaskOpenedInverse keeps the background after a disk opening (variant D).
	MaskOpenedInverse
)

// Strategies lists every strategy in variant order.
var Strategies = []MaskStrategy{MaskRegion, MaskBorder, MaskWhole, MaskOpenedInverse}

// String returns the variant letter.
func (s MaskStrategy) String() string {
	switch s {
	case MaskRegion:
		return "A"
	case MaskBorder:
		return "B"
	case MaskWhole:
		return "C"
	case MaskOpenedInverse:
		return "D"
	default:
		return fmt.Sprintf("MaskStrategy(%d)", int(s))
	}
}

// SpiculationOptions configures the spiculation variants.
type SpiculationOptions struct {
	// Bins quantizes orientations before grouping. Zero or less groups by
	// exact value.
	Bins int

	// BorderWidth is the outer distance of the border band (variant B).
	BorderWidth float64

	// OpeningRadius is the disk radius of the opening (variant D).
	OpeningRadius int

	// RescaleLow and RescaleHigh are the percentiles stretched to the full
	// range for the rescaled run.
	RescaleLow  float64
	RescaleHigh float64
}

// DefaultSpiculationOptions returns 360 bins, a 3 pixel border, a radius 5
// opening and a 50th to 100th percentile stretch.
func DefaultSpiculationOptions() SpiculationOptions {
	return SpiculationOptions{
		Bins:          gradient.DefaultBins,
		BorderWidth:   region.DefaultBorderWidth,
		OpeningRadius: region.DefaultOpeningRadius,
		RescaleLow:    50,
		RescaleHigh:   100,
	}
}

// SpiculationSet holds one dispersion value per strategy.
type SpiculationSet struct {
	A float64 `json:"A"`
	B float64 `json:"B"`
	C float64 `json:"C"`
	D float64 `json:"D"`
}

// Get returns the value of strategy s.
func (s SpiculationSet) Get(strategy MaskStrategy) float64 {
	switch strategy {
	case MaskRegion:
		return s.A
	case MaskBorder:
		return s.B
	case MaskWhole:
		return s.C
	default:
		return s.D
	}
}

func (s *SpiculationSet) set(strategy MaskStrategy, v float64) {
	switch strategy {
	case MaskRegion:
		s.A = v
	case MaskBorder:
		s.B = v
	case MaskWhole:
		s.C = v
	default:
		s.D = v
	}
}

// StrategyMask derives the mask of strategy s from the lesion mask. MaskWhole
// returns nil, meaning no mask.
func StrategyMask(s MaskStrategy, mask *imaging.Mask, opts SpiculationOptions) *imaging.Mask {
	switch s {
	case MaskRegion:
		return mask
	case MaskBorder:
		return region.BorderBand(mask, opts.BorderWidth)
	case MaskOpenedInverse:
		return region.OpenedInverse(mask, opts.OpeningRadius)
	default:
		return nil
	}
}

// SpiculationVariant returns the Scharr gradient dispersion of img restricted
// to the mask of strategy s.
func SpiculationVariant(img *imaging.Image, mask *imaging.Mask, s MaskStrategy, opts SpiculationOptions) (float64, error) {
	field, err := gradient.Compute(img, gradient.Scharr, StrategyMask(s, mask, opts))
	if err != nil {
		return 0, fmt.Errorf("failed to compute spiculation %s: %w", s, err)
	}
	return gradient.Dispersion(field, opts.Bins), nil
}

// Spiculation computes the four variants on img.
func Spiculation(img *imaging.Image, mask *imaging.Mask, opts SpiculationOptions) (SpiculationSet, error) {
	var set SpiculationSet
	if err := imaging.CheckShape(img, mask); err != nil {
		return set, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	for _, s := range Strategies {
		v, err := SpiculationVariant(img, mask, s, opts)
		if err != nil {
			return set, err
		}
		set.set(s, v)
	}
	return set, nil
}

// SpiculationPair computes the variants on img and on its intensity-rescaled
// copy.
func SpiculationPair(img *imaging.Image, mask *imaging.Mask, opts SpiculationOptions) (raw, rescaled SpiculationSet, err error) {
	raw, err = Spiculation(img, mask, opts)
	if err != nil {
		return raw, rescaled, err
	}
	rescaled, err = Spiculation(imaging.Rescale(img, opts.RescaleLow, opts.RescaleHigh), mask, opts)
	if err != nil {
		return raw, rescaled, fmt.Errorf("failed on rescaled image: %w", err)
	}
	return raw, rescaled, nil
}
