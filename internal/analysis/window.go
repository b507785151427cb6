// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"iter"
	"math"
	"strings"
)

// WindowFunc returns the window coefficient for sample n of a window of
// length size. It is only defined for size >= 2; callers must not pass
// smaller windows.
type WindowFunc func(n, size int) float64

// Hann is the raised-cosine window, zero at both ends.
func Hann(n, size int) float64 {
	return 0.5 * (1 - math.Cos(2*math.Pi*float64(n)/float64(size-1)))
}

// Hamming is the raised-cosine window with non-zero end points.
func Hamming(n, size int) float64 {
	return 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(size-1))
}

// Blackman is the three-term Blackman window.
func Blackman(n, size int) float64 {
	k := float64(n) / float64(size-1)
	return 0.42 - 0.5*math.Cos(2*math.Pi*k) + 0.08*math.Cos(4*math.Pi*k)
}

// Window selects one of the supported window functions.
type Window int

// Enum for available window functions, in display order.
const (
	WindowHann Window = iota
	WindowHamming
	WindowBlackman
)

var windows = [...]struct {
	name string
	fn   WindowFunc
}{
	WindowHann:     {"Hann", Hann},
	WindowHamming:  {"Hamming", Hamming},
	WindowBlackman: {"Blackman", Blackman},
}

// Windows returns every supported window in display order.
func Windows() []Window {
	return []Window{WindowHann, WindowHamming, WindowBlackman}
}

// String returns the display name of the window.
func (w Window) String() string {
	if w < 0 || int(w) >= len(windows) {
		return fmt.Sprintf("Window(%d)", int(w))
	}
	return windows[w].name
}

// Func returns the coefficient function for w, Hann if w is unknown.
func (w Window) Func() WindowFunc {
	if w < 0 || int(w) >= len(windows) {
		return Hann
	}
	return windows[w].fn
}

// Next cycles to the following window, wrapping around.
func (w Window) Next() Window {
	return Window((int(w) + 1) % len(windows))
}

// ParseWindow converts a string name (case-insensitive) to a Window, returns
// a known default (Hann) and an error if the name is unknown.
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	default:
		return WindowHann, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// ApplyWindow lazily yields fn(i, len(seq)) * seq[i] for every index of seq.
func ApplyWindow(seq []float64, fn WindowFunc) iter.Seq[float64] {
	size := len(seq)
	return func(yield func(float64) bool) {
		for i, v := range seq {
			if !yield(fn(i, size) * v) {
				return
			}
		}
	}
}

// Coefficients evaluates fn over a window of length size.
func Coefficients(fn WindowFunc, size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = fn(i, size)
	}
	return coeffs
}
