// SPDX-License-Identifier: MIT
package analysis

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// MinTransformLength is the shortest sequence the transform accepts.
// Shorter inputs yield an empty spectrum.
const MinTransformLength = 10

// Transformer produces normalised one-sided spectra for real sequences of a
// fixed length. It reuses its FFT plan and is not safe for concurrent use;
// give each goroutine its own.
type Transformer struct {
	n   int
	fft *fourier.FFT
}

// NewTransformer prepares a transformer for sequences of length n. A nil
// transformer is returned for n < MinTransformLength.
func NewTransformer(n int) *Transformer {
	if n < MinTransformLength {
		return nil
	}
	return &Transformer{n: n, fft: fourier.NewFFT(n)}
}

// Len returns the input length the transformer was built for.
func (t *Transformer) Len() int {
	return t.n
}

// Bins returns the number of output coefficients, n/2 + 1.
func (t *Transformer) Bins() int {
	return t.n/2 + 1
}

// Transform writes the one-sided spectrum of seq into dst and returns it.
// dst may be nil or must hold Bins() elements; seq must hold Len() samples.
//
// Every coefficient is scaled by 1/n. All bins except DC and, for even n,
// Nyquist are doubled to fold in the discarded negative frequencies.
func (t *Transformer) Transform(dst []complex128, seq []float64) []complex128 {
	dst = t.fft.Coefficients(dst, seq)

	scale := complex(1/float64(t.n), 0)
	nyquist := -1
	if t.n%2 == 0 {
		nyquist = t.n / 2
	}
	for i := range dst {
		dst[i] *= scale
		if i != 0 && i != nyquist {
			dst[i] *= 2
		}
	}
	return dst
}

// OneSided returns the normalised one-sided spectrum of seq, or nil when
// seq is shorter than MinTransformLength.
func OneSided(seq []float64) []complex128 {
	t := NewTransformer(len(seq))
	if t == nil {
		return nil
	}
	return t.Transform(nil, seq)
}
