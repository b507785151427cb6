// SPDX-License-Identifier: MIT
/*
Package acquisition produces two-channel sample batches and delivers them to
the consumer over an mpsc channel.

A Stream owns one Source at a time. Every Start creates a fresh channel pair:
the Source keeps the sender, the caller gets the receiver. Restarting after a
range or coupling change therefore hands the caller a new receiver, and the
old one simply drains what was already queued.
*/
package acquisition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"scope/internal/log"
	"scope/internal/mpsc"
)

var (
	// ErrStreamRunning is returned by Start when a stream is already active.
	ErrStreamRunning = errors.New("stream already running")
	// ErrNotStreaming is returned by Stop when no stream is active.
	ErrNotStreaming = errors.New("stream not running")
)

// SampleBatch is one delivery of simultaneous samples in volts. A and B
// have equal length.
type SampleBatch struct {
	A, B []float64
}

// Len returns the number of samples per channel.
func (b SampleBatch) Len() int {
	return min(len(b.A), len(b.B))
}

// Source pushes batches onto tx until Stop is called. Start must not block;
// implementations deliver from their own goroutine or driver callback.
type Source interface {
	Start(settings Settings, tx *mpsc.Sender[SampleBatch]) error
	Stop() error
}

// Stream manages the lifecycle of a Source.
type Stream struct {
	mu        sync.Mutex
	source    Source
	settings  Settings
	streaming bool
	id        uuid.UUID
	logger    *log.Logger
}

// NewStream wraps source with the given initial settings.
func NewStream(source Source, settings Settings) *Stream {
	return &Stream{
		source:   source,
		settings: settings,
		logger:   log.Named("acquisition"),
	}
}

// Start begins acquisition and returns the receiver for this run.
func (s *Stream) Start() (*mpsc.Receiver[SampleBatch], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return nil, ErrStreamRunning
	}
	return s.startLocked()
}

func (s *Stream) startLocked() (*mpsc.Receiver[SampleBatch], error) {
	tx, rx := mpsc.Make[SampleBatch]()
	if err := s.source.Start(s.settings, tx); err != nil {
		rx.Close()
		return nil, fmt.Errorf("failed to start source: %w", err)
	}
	s.streaming = true
	s.id = uuid.New()
	s.logger.Infof("stream %s started (range %s, %s coupling)", s.id, s.settings.Range, s.settings.Coupling)
	return rx, nil
}

// Stop halts the source. The receiver of the stopped run keeps whatever was
// already queued.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming {
		return ErrNotStreaming
	}
	return s.stopLocked()
}

func (s *Stream) stopLocked() error {
	s.streaming = false
	if err := s.source.Stop(); err != nil {
		return fmt.Errorf("failed to stop source: %w", err)
	}
	s.logger.Infof("stream %s stopped", s.id)
	return nil
}

// SetRange changes the voltage range. If the stream is running and the range
// changed, it is restarted and the new receiver is returned; otherwise the
// returned receiver is nil.
func (s *Stream) SetRange(r VoltageRange) (*mpsc.Receiver[SampleBatch], error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid voltage range %d", int(r))
	}
	return s.update(func(st *Settings) { st.Range = r })
}

// SetCoupling changes the coupling mode with the same restart rules as
// SetRange.
func (s *Stream) SetCoupling(c Coupling) (*mpsc.Receiver[SampleBatch], error) {
	return s.update(func(st *Settings) { st.Coupling = c })
}

func (s *Stream) update(apply func(*Settings)) (*mpsc.Receiver[SampleBatch], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	apply(&s.settings)
	if !s.streaming || prev == s.settings {
		return nil, nil
	}

	if err := s.stopLocked(); err != nil {
		return nil, err
	}
	return s.startLocked()
}

// Settings returns the current channel settings.
func (s *Stream) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Streaming reports whether the source is running.
func (s *Stream) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// ID identifies the current or most recent run. It is the zero UUID before
// the first Start.
func (s *Stream) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
