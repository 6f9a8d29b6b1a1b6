package detection

import (
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/parallel"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/lesion-features/internal/imaging"
)

// GaborOptions configures the Gabor filter bank.
type GaborOptions struct {
	// Orientations is the number of evenly spaced angles on [0, π).
	Orientations int

	// Sigmas are the Gaussian envelope widths (isotropic).
	Sigmas []float64

	// Frequencies are the carrier spatial frequencies in cycles per pixel.
	Frequencies []float64

	// NStds is the kernel half-extent in envelope standard deviations.
	NStds float64
}

// DefaultGaborOptions returns 4 orientations, sigmas {1, 3} and frequencies
// {0.05, 0.25}: a 16-kernel bank.
func DefaultGaborOptions() GaborOptions {
	return GaborOptions{
		Orientations: 4,
		Sigmas:       []float64{1, 3},
		Frequencies:  []float64{0.05, 0.25},
		NStds:        3,
	}
}

// GaborKernel is one real Gabor filter of the bank.
type GaborKernel struct {
	Theta     float64
	Sigma     float64
	Frequency float64
	Kernel    *convolution.Kernel
}

// GaborResponse summarizes the filtered image for one kernel.
type GaborResponse struct {
	Theta     float64 `json:"theta"`
	Sigma     float64 `json:"sigma"`
	Frequency float64 `json:"frequency"`
	Mean      float64 `json:"mean"`
	Variance  float64 `json:"variance"`
}

// NewGaborKernel returns the real part of a Gabor kernel.
//
// The kernel is a Gaussian envelope of width sigma, normalized by 2πσ²,
// modulated by cos(2π·frequency·x') where x' is the coordinate rotated by
// theta. Its half-extent along each axis is the ceiling of nStds·σ projected
// on that axis, and at least 1.
func NewGaborKernel(frequency, theta, sigma, nStds float64) *convolution.Kernel {
	ct, st := math.Cos(theta), math.Sin(theta)
	// The envelope is isotropic, so both axes share one half-extent.
	half := int(math.Ceil(math.Max(math.Max(math.Abs(nStds*sigma*ct), math.Abs(nStds*sigma*st)), 1)))
	hx, hy := half, half

	k := convolution.NewKernel(2*hx+1, 2*hy+1)
	norm := 2 * math.Pi * sigma * sigma
	for j := -hy; j <= hy; j++ {
		for i := -hx; i <= hx; i++ {
			x, y := float64(i), float64(j)
			rotx := x*ct + y*st
			roty := -x*st + y*ct
			g := math.Exp(-0.5*(rotx*rotx+roty*roty)/(sigma*sigma)) / norm
			k.Matrix[(j+hy)*k.Width+(i+hx)] = g * math.Cos(2*math.Pi*frequency*rotx)
		}
	}
	return k
}

// GaborBank builds the kernels for every (orientation, sigma, frequency)
// combination, orientation varying slowest.
func GaborBank(opts GaborOptions) []GaborKernel {
	var bank []GaborKernel
	for t := 0; t < opts.Orientations; t++ {
		theta := float64(t) / float64(opts.Orientations) * math.Pi
		for _, sigma := range opts.Sigmas {
			for _, freq := range opts.Frequencies {
				bank = append(bank, GaborKernel{
					Theta:     theta,
					Sigma:     sigma,
					Frequency: freq,
					Kernel:    NewGaborKernel(freq, theta, sigma, opts.NStds),
				})
			}
		}
	}
	return bank
}

// GaborResponses filters the [0, 1] image with every kernel of the bank and
// returns the mean and population variance of each filtered image.
//
// Borders wrap around: the image is treated as one period of a tiling. The
// image is extended by the widest kernel half-extent with wrapped copies of
// itself and placed on a grid whose sides only have the factors 2, 3 and 5,
// so the FFT stays fast for any frame size. The linear convolution over the
// extension equals the circular convolution over the frame.
func GaborResponses(img *imaging.Image, bank []GaborKernel) []GaborResponse {
	w, h := img.Width, img.Height
	responses := make([]GaborResponse, len(bank))
	if w == 0 || h == 0 {
		for i, k := range bank {
			responses[i] = GaborResponse{Theta: k.Theta, Sigma: k.Sigma, Frequency: k.Frequency}
		}
		return responses
	}

	rx, ry := 0, 0
	for _, k := range bank {
		rx = max(rx, k.Kernel.Width/2)
		ry = max(ry, k.Kernel.Height/2)
	}
	gw, gh := smoothSize(w+2*rx), smoothSize(h+2*ry)

	src := img.Float()
	spectrum := make([]complex128, gw*gh)
	for ey := 0; ey < h+2*ry; ey++ {
		sy := mod(ey-ry, h)
		for ex := 0; ex < w+2*rx; ex++ {
			spectrum[ey*gw+ex] = complex(src[sy*w+mod(ex-rx, w)], 0)
		}
	}
	fft2(spectrum, gw, gh, true)

	padded := make([]complex128, gw*gh)
	filtered := make([]float64, w*h)
	scale := 1 / float64(gw*gh)
	for n, k := range bank {
		padKernel(padded, k.Kernel, gw, gh)
		fft2(padded, gw, gh, true)
		for i := range padded {
			padded[i] *= spectrum[i]
		}
		fft2(padded, gw, gh, false)

		for y := 0; y < h; y++ {
			row := padded[(y+ry)*gw+rx:]
			for x := 0; x < w; x++ {
				filtered[y*w+x] = real(row[x]) * scale
			}
		}
		mean, variance := stat.PopMeanVariance(filtered, nil)
		responses[n] = GaborResponse{
			Theta:     k.Theta,
			Sigma:     k.Sigma,
			Frequency: k.Frequency,
			Mean:      mean,
			Variance:  variance,
		}
	}
	return responses
}

// smoothSize returns the smallest n >= size whose only prime factors are 2, 3
// and 5.
func smoothSize(size int) int {
	for n := max(size, 1); ; n++ {
		m := n
		for _, p := range []int{2, 3, 5} {
			for m%p == 0 {
				m /= p
			}
		}
		if m == 1 {
			return n
		}
	}
}

// padKernel writes k into a w x h grid with its center at the origin,
// wrapping negative offsets, so a circular convolution with the grid matches
// a centered convolution with k.
func padKernel(dst []complex128, k *convolution.Kernel, w, h int) {
	for i := range dst {
		dst[i] = 0
	}
	cx, cy := k.Width/2, k.Height/2
	for j := 0; j < k.Height; j++ {
		y := mod(j-cy, h)
		for i := 0; i < k.Width; i++ {
			x := mod(i-cx, w)
			dst[y*w+x] += complex(k.At(i, j), 0)
		}
	}
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// fft2 transforms a row-major w x h grid in place. The inverse is
// unnormalized.
func fft2(data []complex128, w, h int, forward bool) {
	parallel.Line(h, func(start, end int) {
		fft := fourier.NewCmplxFFT(w)
		row := make([]complex128, w)
		for y := start; y < end; y++ {
			copy(row, data[y*w:(y+1)*w])
			if forward {
				fft.Coefficients(data[y*w:(y+1)*w], row)
			} else {
				fft.Sequence(data[y*w:(y+1)*w], row)
			}
		}
	})

	parallel.Line(w, func(start, end int) {
		fft := fourier.NewCmplxFFT(h)
		col := make([]complex128, h)
		out := make([]complex128, h)
		for x := start; x < end; x++ {
			for y := 0; y < h; y++ {
				col[y] = data[y*w+x]
			}
			if forward {
				fft.Coefficients(out, col)
			} else {
				fft.Sequence(out, col)
			}
			for y := 0; y < h; y++ {
				data[y*w+x] = out[y]
			}
		}
	})
}
