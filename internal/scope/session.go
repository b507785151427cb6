// SPDX-License-Identifier: MIT
/*
Package scope holds the consumer side of the oscilloscope: the growing
two-channel sample buffers, the visible time window, and the request/result
exchange with the analysis worker.

A Session never blocks. Each render pass calls Poll to absorb whatever the
acquisition stream delivered, RequestSpectrum to ask for the visible window,
and PollSpectrum to adopt the newest finished estimate.
*/
package scope

import (
	"errors"
	"math"
	"sync"

	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/log"
	"scope/internal/mpsc"
)

// DefaultSegmentLength is the Welch segment length of a new session.
const DefaultSegmentLength = 1024

// MaxViewSeconds is the widest visible window, in seconds.
const MaxViewSeconds = 60

// maxIndex bounds sample indices derived from view times so that the int
// conversion cannot overflow.
const maxIndex = 1 << 52

var (
	errEmptyView     = errors.New("view must have positive width")
	errNonFiniteView = errors.New("view bounds must be finite")
)

// Session is safe for concurrent use; the renderer and the transports may
// read it from different goroutines.
type Session struct {
	mu sync.Mutex

	a, b     []float64
	samples  *mpsc.Receiver[acquisition.SampleBatch]
	recorder *acquisition.Recorder

	timebase TimeBase
	view     View
	follow   bool
	voltage  acquisition.VoltageRange

	requests      *mpsc.Sender[analysis.Request]
	results       *mpsc.Receiver[analysis.Result]
	segmentLength int
	window        analysis.Window
	sequence      uint64
	clearedAt     uint64 // results up to this sequence predate Clear
	last          requestKey
	requested     bool
	spectrum      analysis.Result
	hasSpectrum   bool

	generator *acquisition.Generator
	logger    *log.Logger
}

// requestKey identifies the parameters of a spectrum request so that an
// unchanged view is not recomputed.
type requestKey struct {
	lo, hi        int
	segmentLength int
	window        analysis.Window
}

// NewSession creates an empty session that submits spectrum requests on
// requests and reads estimates from results.
func NewSession(requests *mpsc.Sender[analysis.Request], results *mpsc.Receiver[analysis.Result]) *Session {
	return &Session{
		timebase:      Seconds,
		view:          View{Min: 0, Max: 10},
		voltage:       acquisition.DefaultVoltageRange,
		requests:      requests,
		results:       results,
		segmentLength: DefaultSegmentLength,
		window:        analysis.WindowHann,
		generator:     acquisition.NewGenerator(acquisition.WaveformSine),
		logger:        log.Named("scope"),
	}
}

// Attach makes rx the sample source, replacing any previous one. Batches
// still queued on the old receiver are absorbed first.
func (s *Session) Attach(rx *mpsc.Receiver[acquisition.SampleBatch]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples != nil {
		s.appendLocked(s.samples.FlushNoBlock())
	}
	s.samples = rx
}

// Detach stops reading samples. Buffers are kept.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples != nil {
		s.appendLocked(s.samples.FlushNoBlock())
	}
	s.samples = nil
}

// SetRecorder tees every polled batch into rec. Pass nil to stop.
func (s *Session) SetRecorder(rec *acquisition.Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
}

// Poll appends every batch queued on the attached receiver and returns the
// number of samples added per channel.
func (s *Session) Poll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.samples == nil {
		return 0
	}
	return s.appendLocked(s.samples.FlushNoBlock())
}

func (s *Session) appendLocked(batches []acquisition.SampleBatch) int {
	added := 0
	for _, batch := range batches {
		n := batch.Len()
		s.a = append(s.a, batch.A[:n]...)
		s.b = append(s.b, batch.B[:n]...)
		added += n

		if s.recorder != nil {
			if err := s.recorder.Write(batch); err != nil {
				s.logger.Errorf("failed to record batch: %v", err)
			}
		}
	}
	if added > 0 && s.follow {
		s.followLocked()
	}
	return added
}

// followLocked moves the view so the newest sample is at its right edge
// when it has scrolled out of view.
func (s *Session) followLocked() {
	latest := s.durationLocked()
	if latest > s.view.Max || latest < s.view.Min {
		w := s.view.Width()
		s.view = View{Min: latest - w, Max: latest}
	}
}

// Fill appends n synthetic samples of waveform w, continuing the time axis.
func (s *Session) Fill(w acquisition.Waveform, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return
	}
	s.generator.Waveform = w
	s.appendLocked([]acquisition.SampleBatch{
		s.generator.Batch(len(s.a), n, s.voltage, nil),
	})
}

// Clear drops all samples and the current spectrum, and moves the view back
// to time zero keeping its width.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.a, s.b = nil, nil
	s.view = View{Min: 0, Max: s.view.Width()}
	s.spectrum, s.hasSpectrum = analysis.Result{}, false
	s.requested = false
	s.clearedAt = s.sequence
}

// Samples returns the number of samples held per channel.
func (s *Session) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.a)
}

// Duration returns the time span of the buffered samples in time base units.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

func (s *Session) durationLocked() float64 {
	return float64(len(s.a)) * acquisition.SamplePeriod.Seconds() * s.timebase.Scale()
}

// TimeBase returns the current horizontal unit.
func (s *Session) TimeBase() TimeBase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timebase
}

// SetTimeBase changes the unit, rescaling the view so it covers the same
// instants.
func (s *Session) SetTimeBase(tb TimeBase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tb.Scale() / s.timebase.Scale()
	s.view = View{Min: s.view.Min * k, Max: s.view.Max * k}
	s.timebase = tb
}

// View returns the visible interval.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// MaxViewWidth returns the widest allowed view in the current time base.
func (s *Session) MaxViewWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxViewWidthLocked()
}

func (s *Session) maxViewWidthLocked() float64 {
	return MaxViewSeconds * s.timebase.Scale()
}

// SetView changes the visible interval. A view wider than MaxViewWidth keeps
// its left edge and is narrowed to the maximum.
func (s *Session) SetView(v View) error {
	if math.IsNaN(v.Min) || math.IsInf(v.Min, 0) || math.IsNaN(v.Max) || math.IsInf(v.Max, 0) {
		return errNonFiniteView
	}
	if !(v.Width() > 0) {
		return errEmptyView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit := s.maxViewWidthLocked(); v.Width() > limit {
		v.Max = v.Min + limit
	}
	s.view = v
	return nil
}

// Follow reports whether the view tracks the newest sample.
func (s *Session) Follow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follow
}

// SetFollow turns view tracking on or off.
func (s *Session) SetFollow(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow = on
	if on {
		s.followLocked()
	}
}

// VoltageRange returns the range used for display scaling.
func (s *Session) VoltageRange() acquisition.VoltageRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voltage
}

// SetVoltageRange changes the display range.
func (s *Session) SetVoltageRange(r acquisition.VoltageRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voltage = r
}

// VisibleRange returns the half-open sample index interval [lo, hi) inside
// the view. lo == hi when nothing is visible.
func (s *Session) VisibleRange() (lo, hi int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleRangeLocked()
}

func (s *Session) visibleRangeLocked() (lo, hi int) {
	n := len(s.a)
	lo = clampIndex(s.indexLocked(s.view.Min), n)
	hi = clampIndex(s.indexLocked(s.view.Max)+1, n)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// indexLocked maps a time in time base units to the nearest sample index,
// saturating at ±maxIndex.
func (s *Session) indexLocked(t float64) int {
	x := math.Round(t / s.timebase.Scale() / acquisition.SamplePeriod.Seconds())
	switch {
	case math.IsNaN(x):
		return 0
	case x > maxIndex:
		return maxIndex
	case x < -maxIndex:
		return -maxIndex
	}
	return int(x)
}

func clampIndex(i, n int) int {
	return max(0, min(i, n))
}

// Visible returns copies of both channels inside the view.
func (s *Session) Visible() (a, b []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := s.visibleRangeLocked()
	return append([]float64(nil), s.a[lo:hi]...), append([]float64(nil), s.b[lo:hi]...)
}

// Trace samples the view at points evenly spaced instants and returns the
// instants with both channels in display units. Instants outside the data
// are skipped.
func (s *Session) Trace(points int) (ts, a, b []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if points < 2 {
		return nil, nil, nil
	}
	scale := s.voltage.DisplayScale()
	step := s.view.Width() / float64(points-1)
	for i := range points {
		t := s.view.Min + float64(i)*step
		idx := s.indexLocked(t)
		if idx < 0 || idx >= len(s.a) {
			continue
		}
		ts = append(ts, t)
		a = append(a, s.a[idx]*scale)
		b = append(b, s.b[idx]*scale)
	}
	return ts, a, b
}

// SegmentLength returns the Welch segment length used for requests.
func (s *Session) SegmentLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segmentLength
}

// SetSegmentLength sets the Welch segment length, raised to at least
// analysis.MinTransformLength.
func (s *Session) SetSegmentLength(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segmentLength = max(n, analysis.MinTransformLength)
}

// Window returns the window function used for requests.
func (s *Session) Window() analysis.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// SetWindow selects the window function used for requests.
func (s *Session) SetWindow(w analysis.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = w
}

// RequestSpectrum submits the visible window to the worker unless the same
// samples and parameters were already requested. It reports whether a
// request was sent.
func (s *Session) RequestSpectrum() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requests == nil {
		return false
	}
	lo, hi := s.visibleRangeLocked()
	key := requestKey{lo: lo, hi: hi, segmentLength: s.segmentLength, window: s.window}
	if s.requested && key == s.last {
		return false
	}

	s.sequence++
	req := analysis.Request{
		A:             append([]float64(nil), s.a[lo:hi]...),
		B:             append([]float64(nil), s.b[lo:hi]...),
		SegmentLength: s.segmentLength,
		Window:        s.window.Func(),
		Sequence:      s.sequence,
	}
	if !s.requests.Send(req) {
		s.logger.Warnf("analysis worker is gone, spectrum request %d dropped", s.sequence)
		return false
	}
	s.last, s.requested = key, true
	return true
}

// PollSpectrum adopts the newest finished estimate, discarding older ones
// queued behind it and any requested before the last Clear. It reports
// whether a new estimate was adopted.
func (s *Session) PollSpectrum() (analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results == nil {
		return analysis.Result{}, false
	}
	results := s.results.FlushNoBlock()
	if len(results) == 0 {
		return analysis.Result{}, false
	}
	newest := results[len(results)-1]
	if newest.Sequence <= s.clearedAt {
		return analysis.Result{}, false
	}
	s.spectrum = newest
	s.hasSpectrum = true
	return s.spectrum, true
}

// Tick is one render pass: it absorbs new samples, requests the spectrum of
// the visible window and adopts the newest finished estimate, which it
// returns when there is one.
func (s *Session) Tick() (analysis.Result, bool) {
	s.Poll()
	s.RequestSpectrum()
	return s.PollSpectrum()
}

// Spectrum returns the most recently adopted estimate.
func (s *Session) Spectrum() (analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spectrum, s.hasSpectrum
}
