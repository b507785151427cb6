// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Overlap is the fraction of each segment shared with the next one.
const Overlap = 0.5

var errShortTransform = errors.New("transform returned fewer bins than expected")

// Welch estimates the transfer-function power spectrum between two
// synchronised channels and returns it in decibels, one value per bin from
// DC to Nyquist.
//
// The input is cut into segments of segmentLength samples advancing by
// segmentLength*Overlap. The last segment is zero-padded on the right so
// every sample is covered. Each segment pair is windowed with fn and
// transformed, the ratio (A/B)^2 is averaged over all segments, and every
// bin is reported as 10*log10(|mean|). A zero denominator is not guarded and
// yields Inf or NaN.
//
// When the input is not longer than segmentLength it is treated as a single
// segment of len(a) samples and the result has len(a)/2+1 bins; otherwise
// it has segmentLength/2+1 bins.
//
// Welch returns nil when the channels differ in length, hold fewer than
// MinTransformLength samples, or when segmentLength cannot form a segment.
func Welch(a, b []float64, segmentLength int, fn WindowFunc) []float64 {
	n := len(a)
	if n < MinTransformLength || len(b) != n || segmentLength < 2 || fn == nil {
		return nil
	}

	if n <= segmentLength {
		ta := OneSided(slices.Collect(ApplyWindow(a, fn)))
		tb := OneSided(slices.Collect(ApplyWindow(b, fn)))
		sum := make([]complex128, len(ta))
		addTransfer(sum, ta, tb)
		return decibels(sum, 1)
	}

	if segmentLength < MinTransformLength {
		return nil
	}

	starts := segmentStarts(n, segmentLength)
	sum, count, err := accumulateSegments(a, b, starts, segmentLength, fn)
	if err != nil || count == 0 {
		return nil
	}
	return decibels(sum, count)
}

// segmentStarts lists the first sample index of every segment.
func segmentStarts(n, segmentLength int) []int {
	stride := int(float64(segmentLength) * Overlap)
	if stride < 1 {
		stride = 1
	}
	limit := n - segmentLength + stride

	starts := make([]int, 0, limit/stride+1)
	for left := 0; left < limit; left += stride {
		starts = append(starts, left)
	}
	return starts
}

// accumulateSegments fans the segments out over worker goroutines. Each
// worker keeps a private partial sum; partials are merged once per worker.
func accumulateSegments(a, b []float64, starts []int, segmentLength int, fn WindowFunc) ([]complex128, int, error) {
	bins := segmentLength/2 + 1
	coeffs := Coefficients(fn, segmentLength)

	workers := min(runtime.GOMAXPROCS(0), len(starts))

	var (
		mu    sync.Mutex
		total = make([]complex128, bins)
		count int
		g     errgroup.Group
	)

	for w := range workers {
		g.Go(func() error {
			t := NewTransformer(segmentLength)
			segA := make([]float64, segmentLength)
			segB := make([]float64, segmentLength)
			specA := make([]complex128, bins)
			specB := make([]complex128, bins)
			partial := make([]complex128, bins)
			done := 0

			for i := w; i < len(starts); i += workers {
				fillSegment(segA, a, starts[i], coeffs)
				fillSegment(segB, b, starts[i], coeffs)

				specA = t.Transform(specA, segA)
				specB = t.Transform(specB, segB)
				if len(specA) != bins || len(specB) != bins {
					return errShortTransform
				}
				addTransfer(partial, specA, specB)
				done++
			}

			mu.Lock()
			for i, v := range partial {
				total[i] += v
			}
			count += done
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return total, count, nil
}

// fillSegment copies the windowed segment starting at left into dst,
// zero-padding past the end of src.
func fillSegment(dst, src []float64, left int, coeffs []float64) {
	right := min(left+len(dst), len(src))
	m := copy(dst, src[left:right])
	clear(dst[m:])
	for i := range m {
		dst[i] *= coeffs[i]
	}
}

// addTransfer adds (a/b)^2 bin by bin into sum.
func addTransfer(sum, a, b []complex128) {
	for i := range sum {
		q := a[i] / b[i]
		sum[i] += q * q
	}
}

// decibels averages sum over count segments and converts to dB.
func decibels(sum []complex128, count int) []float64 {
	out := make([]float64, len(sum))
	div := complex(float64(count), 0)
	for i, v := range sum {
		out[i] = 10 * math.Log10(cmplx.Abs(v/div))
	}
	return out
}

// FrequencyAxis returns the centre frequency in Hz of each of bins spectrum
// bins produced from segments of transformLength samples.
func FrequencyAxis(bins, transformLength int, sampleRate float64) []float64 {
	if bins <= 0 || transformLength <= 0 {
		return nil
	}
	freqs := make([]float64, bins)
	step := sampleRate / float64(transformLength)
	for i := range freqs {
		freqs[i] = float64(i) * step
	}
	return freqs
}

// ClipNonFinite returns a copy of spectrum with -Inf and NaN bins set to
// floor and +Inf bins set to ceil, for consumers that cannot carry
// non-finite values.
func ClipNonFinite(spectrum []float64, floor, ceil float64) []float64 {
	out := make([]float64, len(spectrum))
	for i, v := range spectrum {
		switch {
		case math.IsNaN(v), math.IsInf(v, -1):
			out[i] = floor
		case math.IsInf(v, 1):
			out[i] = ceil
		default:
			out[i] = v
		}
	}
	return out
}
