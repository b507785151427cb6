// SPDX-License-Identifier: MIT
package utils

import "math"

// GenerateSineWave returns size samples of a sine at frequency Hz scaled to
// 90% of the int32 range, as delivered by a 32-bit input device.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	return generate(size, sampleRate, frequency, math.Sin)
}

// GenerateCosineWave is GenerateSineWave with a quarter-period phase shift.
func GenerateCosineWave(size int, sampleRate, frequency float64) []int32 {
	return generate(size, sampleRate, frequency, math.Cos)
}

func generate(size int, sampleRate, frequency float64, fn func(float64) float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(fn(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// Interleave merges two channels into one frame-interleaved buffer, the
// layout of a stereo input callback. The shorter channel sets the length.
func Interleave(a, b []int32) []int32 {
	n := min(len(a), len(b))
	out := make([]int32, 2*n)
	for i := range n {
		out[2*i] = a[i]
		out[2*i+1] = b[i]
	}
	return out
}

// FindPeakBin returns the index of the largest finite value in
// values[startBin:endBin+1], or -1 when there is none. The bounds are
// clamped to the slice.
func FindPeakBin(values []float64, startBin, endBin int) int {
	startBin = max(startBin, 0)
	endBin = min(endBin, len(values)-1)

	peakBin := -1
	peakValue := math.Inf(-1)
	for bin := startBin; bin <= endBin; bin++ {
		v := values[bin]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if peakBin < 0 || v > peakValue {
			peakValue = v
			peakBin = bin
		}
	}
	return peakBin
}
