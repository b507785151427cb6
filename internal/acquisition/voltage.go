// SPDX-License-Identifier: MIT
package acquisition

import (
	"fmt"
	"strings"
	"time"
)

// SamplePeriod is the spacing between consecutive samples of a channel.
const SamplePeriod = 20 * time.Microsecond

// SampleRate is the acquisition rate in Hz implied by SamplePeriod.
var SampleRate = float64(time.Second) / float64(SamplePeriod)

// MaxRawValue is the raw device count that maps to the full-scale voltage.
const MaxRawValue = 32767

// VoltageRange is the input range both channels are configured for.
type VoltageRange int

// Supported input ranges, smallest first.
const (
	Range50mV VoltageRange = iota
	Range100mV
	Range200mV
	Range500mV
	Range1V
	Range2V
	Range5V
	Range10V
	Range20V
)

// DefaultVoltageRange is the range used when none is configured.
const DefaultVoltageRange = Range10V

var ranges = [...]struct {
	name      string
	fullScale float64 // volts
}{
	Range50mV:  {"50mV", 0.05},
	Range100mV: {"100mV", 0.1},
	Range200mV: {"200mV", 0.2},
	Range500mV: {"500mV", 0.5},
	Range1V:    {"1V", 1},
	Range2V:    {"2V", 2},
	Range5V:    {"5V", 5},
	Range10V:   {"10V", 10},
	Range20V:   {"20V", 20},
}

// VoltageRanges returns every supported range, smallest first.
func VoltageRanges() []VoltageRange {
	out := make([]VoltageRange, len(ranges))
	for i := range out {
		out[i] = VoltageRange(i)
	}
	return out
}

// Valid reports whether r is a supported range.
func (r VoltageRange) Valid() bool {
	return r >= 0 && int(r) < len(ranges)
}

func (r VoltageRange) String() string {
	if !r.Valid() {
		return fmt.Sprintf("VoltageRange(%d)", int(r))
	}
	return ranges[r].name
}

// FullScale returns the voltage a full-scale raw reading represents.
func (r VoltageRange) FullScale() float64 {
	if !r.Valid() {
		return 0
	}
	return ranges[r].fullScale
}

// DisplayScale converts volts to the unit the range is labelled in:
// 1000 for millivolt ranges, 1 otherwise.
func (r VoltageRange) DisplayScale() float64 {
	if r.Valid() && ranges[r].fullScale < 1 {
		return 1000
	}
	return 1
}

// Limits returns the symmetric vertical axis limits in display units.
func (r VoltageRange) Limits() (lo, hi float64) {
	hi = r.FullScale() * r.DisplayScale()
	return -hi, hi
}

// Unit returns "mV" or "V" to match DisplayScale.
func (r VoltageRange) Unit() string {
	if r.DisplayScale() == 1000 {
		return "mV"
	}
	return "V"
}

// ToVolts converts a raw device count to volts.
func (r VoltageRange) ToVolts(raw int16) float64 {
	return float64(raw) / MaxRawValue * r.FullScale()
}

// Next returns the following range, wrapping to the smallest.
func (r VoltageRange) Next() VoltageRange {
	return VoltageRange((int(r) + 1) % len(ranges))
}

// ParseVoltageRange parses names such as "50mV" or "10V" (case-insensitive).
func ParseVoltageRange(name string) (VoltageRange, error) {
	n := strings.TrimSpace(name)
	for i, r := range ranges {
		if strings.EqualFold(r.name, n) {
			return VoltageRange(i), nil
		}
	}
	return DefaultVoltageRange, fmt.Errorf("unknown voltage range: '%s'", name)
}

// Coupling selects how the input is coupled to the channel.
type Coupling int

const (
	CouplingAC Coupling = iota
	CouplingDC
)

func (c Coupling) String() string {
	if c == CouplingDC {
		return "DC"
	}
	return "AC"
}

// ParseCoupling parses "ac" or "dc" (case-insensitive).
func ParseCoupling(name string) (Coupling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ac":
		return CouplingAC, nil
	case "dc":
		return CouplingDC, nil
	default:
		return CouplingAC, fmt.Errorf("unknown coupling: '%s'", name)
	}
}

// Settings are the channel parameters a source is started with.
type Settings struct {
	Range    VoltageRange
	Coupling Coupling
}
