// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scope/pkg/utils"
)

var (
	traceAStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C"))
	traceBStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#56CCF2"))
	axisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
)

// series is one line of a plot.
type series struct {
	ys    []float64
	mark  rune
	style lipgloss.Style
}

// plotLines draws every series on a width x height grid scaled to [lo, hi].
// Column i shows the i-th value of each series; values outside [lo, hi] are
// clipped to the border rows. Later series are drawn on top.
func plotLines(width, height int, lo, hi float64, lines ...series) string {
	if width <= 0 || height <= 0 || !(hi > lo) {
		return ""
	}

	type cell struct {
		r     rune
		style *lipgloss.Style
	}
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}
	if zero := rowOf(0, lo, hi, height); lo < 0 && hi > 0 {
		for x := range width {
			grid[zero][x] = cell{r: '─', style: &axisStyle}
		}
	}

	for i := range lines {
		s := &lines[i]
		for x, v := range s.ys {
			if x >= width {
				break
			}
			if math.IsNaN(v) {
				continue
			}
			grid[rowOf(v, lo, hi, height)][x] = cell{r: s.mark, style: &s.style}
		}
	}

	var sb strings.Builder
	for y, row := range grid {
		for _, c := range row {
			if c.style == nil {
				sb.WriteRune(c.r)
				continue
			}
			sb.WriteString(c.style.Render(string(c.r)))
		}
		if y < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// rowOf maps v in [lo, hi] to a grid row, hi at the top.
func rowOf(v, lo, hi float64, height int) int {
	f := (v - lo) / (hi - lo)
	row := height - 1 - int(math.Round(f*float64(height-1)))
	return max(0, min(row, height-1))
}

// resample reduces or stretches ys to n columns by taking the maximum of
// the values falling into each column.
func resample(ys []float64, n int) []float64 {
	if n <= 0 || len(ys) == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(ys) / n
		hi := max((i+1)*len(ys)/n, lo+1)
		peak := math.Inf(-1)
		for _, v := range ys[lo:min(hi, len(ys))] {
			if v > peak {
				peak = v
			}
		}
		out[i] = peak
	}
	return out
}

// bars renders a one-row-per-level bar chart of ys, floor at the bottom.
func bars(ys []float64, width, height int, floor, ceil float64) string {
	cols := resample(ys, width)
	if len(cols) == 0 || height <= 0 || !(ceil > floor) {
		return ""
	}

	var sb strings.Builder
	for y := range height {
		level := ceil - (ceil-floor)*float64(y)/float64(height)
		var row strings.Builder
		for _, v := range cols {
			if v >= level && !math.IsNaN(v) {
				row.WriteRune('█')
			} else {
				row.WriteRune(' ')
			}
		}
		sb.WriteString(barStyle.Render(row.String()))
		if y < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// peak returns the index and value of the largest finite bin.
func peak(spectrum []float64) (int, float64, bool) {
	idx := utils.FindPeakBin(spectrum, 0, len(spectrum)-1)
	if idx < 0 {
		return -1, 0, false
	}
	return idx, spectrum[idx], true
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%.2f kHz", f/1000)
	}
	return fmt.Sprintf("%.1f Hz", f)
}
