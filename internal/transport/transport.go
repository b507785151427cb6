// SPDX-License-Identifier: MIT
package transport

import (
	"errors"

	"scope/internal/analysis"
)

// Transport defines a generic interface for publishing spectrum frames.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// SpectrumProvider exposes the most recently adopted spectrum estimate.
// scope.Session satisfies it.
type SpectrumProvider interface {
	Spectrum() (analysis.Result, bool)
}

// Decibel bounds substituted for non-finite bins in published frames.
const (
	FloorDB = -300.0
	CeilDB  = 300.0
)

// SpectrumFrame is the JSON shape of a published spectrum.
type SpectrumFrame struct {
	Stream   string    `json:"stream"`
	Sequence uint64    `json:"seq"`
	Bins     int       `json:"bins"`
	Freqs    []float64 `json:"freqs"`
	DB       []float64 `json:"db"`
}

// NewSpectrumFrame builds a frame for res. Non-finite bins are clipped to
// FloorDB and CeilDB since JSON cannot carry them.
func NewSpectrumFrame(stream string, res analysis.Result, sampleRate float64) SpectrumFrame {
	return SpectrumFrame{
		Stream:   stream,
		Sequence: res.Sequence,
		Bins:     len(res.Spectrum),
		Freqs:    analysis.FrequencyAxis(len(res.Spectrum), res.SegmentLength, sampleRate),
		DB:       analysis.ClipNonFinite(res.Spectrum, FloorDB, CeilDB),
	}
}

// Multi fans every Send out to all of its transports.
type Multi []Transport

// Send forwards data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
