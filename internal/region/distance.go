package region

import (
	"math"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// DistanceTransform returns, for every foreground pixel, the Euclidean
// distance to the nearest background pixel. Background pixels are 0.
//
// When the mask has no background pixel at all, every foreground distance is
// +Inf.
func DistanceTransform(mask *imaging.Mask) []float64 {
	w, h := mask.Width, mask.Height
	sq := make([]float64, w*h)
	for i, v := range mask.Pix {
		if v {
			sq[i] = math.Inf(1)
		}
	}

	// Columns first, then rows, each as an independent 1-D problem.
	col := make([]float64, h)
	out := make([]float64, h)
	env := newEnvelope(h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = sq[y*w+x]
		}
		env.transform(col, out)
		for y := 0; y < h; y++ {
			sq[y*w+x] = out[y]
		}
	}

	row := make([]float64, w)
	out = make([]float64, w)
	env = newEnvelope(w)
	for y := 0; y < h; y++ {
		copy(row, sq[y*w:(y+1)*w])
		env.transform(row, out)
		copy(sq[y*w:(y+1)*w], out)
	}

	for i, v := range sq {
		sq[i] = math.Sqrt(v)
	}
	return sq
}

// envelope holds scratch space for the 1-D squared distance transform.
type envelope struct {
	v []int
	z []float64
}

func newEnvelope(n int) *envelope {
	return &envelope{
		v: make([]int, n),
		z: make([]float64, n+1),
	}
}

// transform computes d[q] = min_p (q-p)^2 + f[p] by building the lower
// envelope of the parabolas rooted at each finite sample.
func (e *envelope) transform(f, d []float64) {
	n := len(f)
	k := -1
	for q := 0; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			e.v[0] = q
			e.z[0] = math.Inf(-1)
			e.z[1] = math.Inf(1)
			continue
		}
		// z[0] is -Inf, so the scan always stops at k >= 0.
		var s float64
		for {
			p := e.v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
			if s > e.z[k] {
				break
			}
			k--
		}
		k++
		e.v[k] = q
		e.z[k] = s
		e.z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range d {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := 0; q < n; q++ {
		for e.z[k+1] < float64(q) {
			k++
		}
		p := e.v[k]
		d[q] = float64((q-p)*(q-p)) + f[p]
	}
}
