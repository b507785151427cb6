// SPDX-License-Identifier: MIT
package scope

import (
	"fmt"
	"strings"
)

// TimeBase is the unit of the horizontal axis.
type TimeBase int

const (
	Seconds TimeBase = iota
	Milliseconds
	Microseconds
)

// TimeBases returns the supported time bases in display order.
func TimeBases() []TimeBase {
	return []TimeBase{Seconds, Milliseconds, Microseconds}
}

func (tb TimeBase) String() string {
	switch tb {
	case Milliseconds:
		return "ms"
	case Microseconds:
		return "us"
	default:
		return "s"
	}
}

// Scale converts seconds to this unit.
func (tb TimeBase) Scale() float64 {
	switch tb {
	case Milliseconds:
		return 1e3
	case Microseconds:
		return 1e6
	default:
		return 1
	}
}

// Next cycles through the time bases.
func (tb TimeBase) Next() TimeBase {
	return TimeBase((int(tb) + 1) % 3)
}

// ParseTimeBase accepts "s", "ms", "us" or "µs".
func ParseTimeBase(name string) (TimeBase, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "s":
		return Seconds, nil
	case "ms":
		return Milliseconds, nil
	case "us", "µs":
		return Microseconds, nil
	default:
		return Seconds, fmt.Errorf("unknown time base: '%s'", name)
	}
}

// View is the visible horizontal interval, in time base units.
type View struct {
	Min, Max float64
}

// Width returns Max - Min.
func (v View) Width() float64 {
	return v.Max - v.Min
}
