// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
	"testing"
)

const transformTol = 1e-9

func TestTransformShortInput(t *testing.T) {
	for n := range MinTransformLength {
		if got := OneSided(make([]float64, n)); got != nil {
			t.Errorf("OneSided(len %d) = %v, want nil", n, got)
		}
		if tr := NewTransformer(n); tr != nil {
			t.Errorf("NewTransformer(%d) = %v, want nil", n, tr)
		}
	}
}

func TestTransformBins(t *testing.T) {
	for _, n := range []int{10, 11, 64, 255, 256} {
		got := OneSided(make([]float64, n))
		if len(got) != n/2+1 {
			t.Errorf("len %d: %d bins, want %d", n, len(got), n/2+1)
		}
	}
}

func TestTransformDC(t *testing.T) {
	seq := make([]float64, 32)
	for i := range seq {
		seq[i] = 0.75
	}
	coeffs := OneSided(seq)
	if math.Abs(real(coeffs[0])-0.75) > transformTol || math.Abs(imag(coeffs[0])) > transformTol {
		t.Errorf("DC = %v, want 0.75", coeffs[0])
	}
	for i := 1; i < len(coeffs); i++ {
		if cmplx.Abs(coeffs[i]) > transformTol {
			t.Errorf("bin %d = %v, want 0", i, coeffs[i])
		}
	}
}

func TestTransformDoublesInteriorBins(t *testing.T) {
	const (
		n   = 64
		bin = 5
		amp = 1.5
	)
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = amp * math.Sin(2*math.Pi*bin*float64(i)/n)
	}
	coeffs := OneSided(seq)
	if got := cmplx.Abs(coeffs[bin]); math.Abs(got-amp) > transformTol {
		t.Errorf("|bin %d| = %g, want %g", bin, got, amp)
	}
	for i, v := range coeffs {
		if i != bin && cmplx.Abs(v) > transformTol {
			t.Errorf("bin %d leaked %g", i, cmplx.Abs(v))
		}
	}
}

func TestTransformNyquistNotDoubled(t *testing.T) {
	const n = 16
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = math.Cos(math.Pi * float64(i))
	}
	coeffs := OneSided(seq)
	if got := coeffs[n/2]; math.Abs(real(got)-1) > transformTol {
		t.Errorf("Nyquist = %v, want 1", got)
	}
}

func TestTransformOddLengthLastBinDoubled(t *testing.T) {
	const n = 11
	tr := NewTransformer(n)
	if tr.Len() != n || tr.Bins() != 6 {
		t.Fatalf("Len/Bins = %d/%d", tr.Len(), tr.Bins())
	}
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = math.Cos(2 * math.Pi * 5 * float64(i) / n)
	}
	coeffs := tr.Transform(nil, seq)
	if got := cmplx.Abs(coeffs[5]); math.Abs(got-1) > transformTol {
		t.Errorf("|bin 5| = %g, want 1", got)
	}
}

func TestTransformReusesDestination(t *testing.T) {
	tr := NewTransformer(32)
	dst := make([]complex128, tr.Bins())
	seq := make([]float64, 32)
	seq[0] = 1
	out := tr.Transform(dst, seq)
	if &out[0] != &dst[0] {
		t.Error("Transform did not write into dst")
	}
	allocs := testing.AllocsPerRun(50, func() {
		tr.Transform(dst, seq)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Transform, got %.1f", allocs)
	}
}

func BenchmarkTransform(b *testing.B) {
	tr := NewTransformer(1024)
	dst := make([]complex128, tr.Bins())
	seq := make([]float64, 1024)
	for i := range seq {
		seq[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 48000)
	}
	b.ReportAllocs()
	for b.Loop() {
		tr.Transform(dst, seq)
	}
}
