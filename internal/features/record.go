package features

import (
	"fmt"
	"math"

	"github.com/ironsheep/lesion-features/internal/detection"
)

// keys lists the flat record fields in output order.
var keys = []string{
	"spiculationA", "spiculationB", "spiculationC", "spiculationD",
	"spiculationRA", "spiculationRB", "spiculationRC", "spiculationRD",
	"circularity", "iou", "hough", "snake", "gabor",
}

// Keys returns the names of the flat feature values in output order.
func Keys() []string {
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Record is the feature vector of one (image, mask) sample.
type Record struct {
	Spiculation         SpiculationSet `json:"-"`
	SpiculationRescaled SpiculationSet `json:"-"`

	Circularity float64 `json:"circularity"`
	IoU         float64 `json:"iou"`
	Hough       int     `json:"hough"`
	Snake       float64 `json:"snake"`

	// GaborCount is the number of kernels in the bank. The flat "gabor" value
	// reports it; the responses themselves are in Gabor.
	GaborCount int                       `json:"gabor"`
	Gabor      []detection.GaborResponse `json:"gabor_responses,omitempty"`
}

// Values returns the flat feature values in Keys order.
func (r *Record) Values() []float64 {
	return []float64{
		r.Spiculation.A, r.Spiculation.B, r.Spiculation.C, r.Spiculation.D,
		r.SpiculationRescaled.A, r.SpiculationRescaled.B, r.SpiculationRescaled.C, r.SpiculationRescaled.D,
		r.Circularity, r.IoU, float64(r.Hough), r.Snake, float64(r.GaborCount),
	}
}

// Map returns the flat feature mapping with exactly the Keys names.
func (r *Record) Map() map[string]float64 {
	out := make(map[string]float64, len(keys))
	for i, v := range r.Values() {
		out[keys[i]] = v
	}
	return out
}

// checkFinite returns ErrNumericInstability naming the first non-finite value.
func (r *Record) checkFinite() error {
	for i, v := range r.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrNumericInstability, keys[i], v)
		}
	}
	for k, g := range r.Gabor {
		for _, v := range []float64{g.Mean, g.Variance} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: gabor response %d = %v", ErrNumericInstability, k, v)
			}
		}
	}
	return nil
}
