// SPDX-License-Identifier: MIT
package scope

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/mpsc"
)

type harness struct {
	session  *Session
	requests *mpsc.Receiver[analysis.Request]
	results  *mpsc.Sender[analysis.Result]
	samples  *mpsc.Sender[acquisition.SampleBatch]
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reqTx, reqRx := mpsc.Make[analysis.Request]()
	resTx, resRx := mpsc.Make[analysis.Result]()
	sampleTx, sampleRx := mpsc.Make[acquisition.SampleBatch]()

	s := NewSession(reqTx, resRx)
	s.Attach(sampleRx)
	return &harness{session: s, requests: reqRx, results: resTx, samples: sampleTx}
}

func batchOf(n int, v float64) acquisition.SampleBatch {
	b := acquisition.SampleBatch{A: make([]float64, n), B: make([]float64, n)}
	for i := range n {
		b.A[i] = v
		b.B[i] = -v
	}
	return b
}

func TestSessionPoll(t *testing.T) {
	h := newHarness(t)

	if n := h.session.Poll(); n != 0 {
		t.Errorf("Poll on empty stream = %d", n)
	}
	h.samples.Send(batchOf(100, 1))
	h.samples.Send(batchOf(50, 2))
	if n := h.session.Poll(); n != 150 {
		t.Errorf("Poll = %d, want 150", n)
	}
	if n := h.session.Samples(); n != 150 {
		t.Errorf("Samples = %d, want 150", n)
	}

	h.session.Detach()
	h.samples.Send(batchOf(10, 3))
	if n := h.session.Poll(); n != 0 {
		t.Errorf("Poll after Detach = %d", n)
	}
}

func TestSessionAttachAbsorbsOldQueue(t *testing.T) {
	h := newHarness(t)
	h.samples.Send(batchOf(20, 1))

	_, rx := mpsc.Make[acquisition.SampleBatch]()
	h.session.Attach(rx)
	if n := h.session.Samples(); n != 20 {
		t.Errorf("Samples after re-attach = %d, want 20", n)
	}
}

func TestSessionVisibleRange(t *testing.T) {
	h := newHarness(t)
	h.session.Fill(acquisition.WaveformSine, 1000) // 20 ms

	if err := h.session.SetView(View{Min: 0, Max: 0.01}); err != nil {
		t.Fatal(err)
	}
	if lo, hi := h.session.VisibleRange(); lo != 0 || hi != 501 {
		t.Errorf("VisibleRange = [%d, %d), want [0, 501)", lo, hi)
	}

	h.session.SetTimeBase(Milliseconds)
	if v := h.session.View(); math.Abs(v.Min) > 1e-9 || math.Abs(v.Max-10) > 1e-9 {
		t.Errorf("view in ms = %+v, want {0 10}", v)
	}
	if lo, hi := h.session.VisibleRange(); lo != 0 || hi != 501 {
		t.Errorf("VisibleRange in ms = [%d, %d), want [0, 501)", lo, hi)
	}

	_ = h.session.SetView(View{Min: 15, Max: 100})
	if lo, hi := h.session.VisibleRange(); lo != 750 || hi != 1000 {
		t.Errorf("VisibleRange past end = [%d, %d), want [750, 1000)", lo, hi)
	}

	_ = h.session.SetView(View{Min: 50, Max: 100})
	if lo, hi := h.session.VisibleRange(); lo != hi {
		t.Errorf("VisibleRange beyond data = [%d, %d), want empty", lo, hi)
	}
	a, b := h.session.Visible()
	if len(a) != 0 || len(b) != 0 {
		t.Error("Visible beyond data is not empty")
	}

	if err := h.session.SetView(View{Min: 5, Max: 5}); err == nil {
		t.Error("expected error for zero-width view")
	}
}

func TestSessionViewWidthCapped(t *testing.T) {
	h := newHarness(t)
	h.session.Fill(acquisition.WaveformSine, 500000) // 10 s

	for range 50 {
		v := h.session.View()
		if err := h.session.SetView(View{Min: v.Min, Max: v.Min + 2*v.Width()}); err != nil {
			t.Fatal(err)
		}
	}
	if v := h.session.View(); v.Min != 0 || v.Width() != MaxViewSeconds {
		t.Errorf("view after zooming out = %+v, want {0 %d}", v, MaxViewSeconds)
	}
	if lo, hi := h.session.VisibleRange(); lo != 0 || hi != 500000 {
		t.Errorf("VisibleRange = [%d, %d), want [0, 500000)", lo, hi)
	}

	h.session.SetTimeBase(Microseconds)
	if got, want := h.session.MaxViewWidth(), MaxViewSeconds*1e6; got != want {
		t.Errorf("MaxViewWidth in us = %g, want %g", got, want)
	}
	_ = h.session.SetView(View{Min: 1e6, Max: 1e9})
	if v := h.session.View(); v.Min != 1e6 || v.Max != 1e6+MaxViewSeconds*1e6 {
		t.Errorf("view in us = %+v", v)
	}
}

func TestSessionViewRejectsNonFinite(t *testing.T) {
	h := newHarness(t)
	prev := h.session.View()
	for _, v := range []View{
		{Min: 0, Max: math.Inf(1)},
		{Min: math.Inf(-1), Max: 1},
		{Min: math.NaN(), Max: 1},
	} {
		if err := h.session.SetView(v); err == nil {
			t.Errorf("SetView(%+v) accepted", v)
		}
	}
	if h.session.View() != prev {
		t.Errorf("view changed to %+v", h.session.View())
	}
}

func TestIndexSaturates(t *testing.T) {
	s := NewSession(nil, nil)
	tests := []struct {
		t    float64
		want int
	}{
		{1e300, maxIndex},
		{-1e300, -maxIndex},
		{math.NaN(), 0},
		{1, 50000},
	}
	for _, tt := range tests {
		if got := s.indexLocked(tt.t); got != tt.want {
			t.Errorf("indexLocked(%g) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestSessionFollow(t *testing.T) {
	h := newHarness(t)
	_ = h.session.SetView(View{Min: 0, Max: 0.01})
	h.session.SetFollow(true)

	h.session.Fill(acquisition.WaveformSine, 1000)
	v := h.session.View()
	if math.Abs(v.Max-0.02) > 1e-9 || math.Abs(v.Width()-0.01) > 1e-9 {
		t.Errorf("view = %+v, want {0.01 0.02}", v)
	}

	h.session.SetFollow(false)
	h.session.Fill(acquisition.WaveformSine, 1000)
	if h.session.View() != v {
		t.Error("view moved with follow off")
	}
}

func TestSessionClear(t *testing.T) {
	h := newHarness(t)
	h.session.Fill(acquisition.WaveformNoise, 500)
	_ = h.session.SetView(View{Min: 2, Max: 5})

	h.session.Clear()
	if h.session.Samples() != 0 {
		t.Error("samples kept after Clear")
	}
	if v := h.session.View(); v.Min != 0 || v.Max != 3 {
		t.Errorf("view after Clear = %+v, want {0 3}", v)
	}
	if _, ok := h.session.Spectrum(); ok {
		t.Error("spectrum kept after Clear")
	}
}

func TestSessionRequestSpectrum(t *testing.T) {
	h := newHarness(t)
	h.session.Fill(acquisition.WaveformSine, 2000)

	if !h.session.RequestSpectrum() {
		t.Fatal("first request not sent")
	}
	if h.session.RequestSpectrum() {
		t.Error("unchanged view requested twice")
	}

	req, ok := h.requests.TryRecv()
	if !ok {
		t.Fatal("no request queued")
	}
	if len(req.A) != 2000 || len(req.B) != 2000 || req.Sequence != 1 || req.Window == nil {
		t.Errorf("request = %d/%d samples, seq %d", len(req.A), len(req.B), req.Sequence)
	}
	if req.SegmentLength != DefaultSegmentLength {
		t.Errorf("segment length = %d", req.SegmentLength)
	}

	h.session.Fill(acquisition.WaveformSine, 10)
	if !h.session.RequestSpectrum() {
		t.Error("new samples did not trigger a request")
	}
	h.session.SetWindow(analysis.WindowBlackman)
	if !h.session.RequestSpectrum() {
		t.Error("window change did not trigger a request")
	}
	h.session.SetSegmentLength(4)
	if got := h.session.SegmentLength(); got != analysis.MinTransformLength {
		t.Errorf("segment length clamped to %d, want %d", got, analysis.MinTransformLength)
	}
	if !h.session.RequestSpectrum() {
		t.Error("segment change did not trigger a request")
	}
	if n := h.requests.Len(); n != 3 {
		t.Errorf("%d requests queued, want 3", n)
	}
}

func TestSessionRequestAfterWorkerGone(t *testing.T) {
	h := newHarness(t)
	h.requests.Close()
	h.session.Fill(acquisition.WaveformSine, 100)
	if h.session.RequestSpectrum() {
		t.Error("request reported sent to a closed worker")
	}
}

func TestSessionPollSpectrum(t *testing.T) {
	h := newHarness(t)
	if _, ok := h.session.PollSpectrum(); ok {
		t.Error("PollSpectrum with nothing queued reported a result")
	}

	for seq := uint64(1); seq <= 3; seq++ {
		h.results.Send(analysis.Result{Spectrum: []float64{float64(seq)}, Sequence: seq})
	}
	res, ok := h.session.PollSpectrum()
	if !ok || res.Sequence != 3 {
		t.Fatalf("PollSpectrum = (%+v, %v), want seq 3", res, ok)
	}
	if got, ok := h.session.Spectrum(); !ok || got.Sequence != 3 {
		t.Errorf("Spectrum = (%+v, %v)", got, ok)
	}
}

func TestSessionClearDiscardsInFlightResult(t *testing.T) {
	h := newHarness(t)
	h.session.Fill(acquisition.WaveformSine, 100)
	h.session.RequestSpectrum()
	req, _ := h.requests.TryRecv()

	h.session.Clear()
	h.results.Send(analysis.Result{Spectrum: []float64{0}, Sequence: req.Sequence})
	if _, ok := h.session.PollSpectrum(); ok {
		t.Error("result requested before Clear was adopted")
	}
}

func TestSessionTrace(t *testing.T) {
	h := newHarness(t)
	h.session.SetVoltageRange(acquisition.Range500mV)
	h.samples.Send(batchOf(1000, 0.25))
	h.session.Poll()

	_ = h.session.SetView(View{Min: 0, Max: 0.001})
	ts, a, b := h.session.Trace(11)
	if len(ts) != 11 || len(a) != 11 || len(b) != 11 {
		t.Fatalf("Trace lengths = %d/%d/%d, want 11", len(ts), len(a), len(b))
	}
	if a[0] != 250 || b[0] != -250 {
		t.Errorf("display values = (%g, %g), want (250, -250)", a[0], b[0])
	}
	if math.Abs(ts[10]-0.001) > 1e-12 {
		t.Errorf("last instant = %g", ts[10])
	}

	_ = h.session.SetView(View{Min: -0.001, Max: 0.001})
	if ts, _, _ := h.session.Trace(21); len(ts) != 11 {
		t.Errorf("Trace before time zero kept %d points, want 11", len(ts))
	}
}

func TestSessionRecordsPolledBatches(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "session.wav")

	rec := &acquisition.Recorder{}
	if err := rec.StartRecording(path, acquisition.Range1V); err != nil {
		t.Fatal(err)
	}
	h.session.SetRecorder(rec)
	h.samples.Send(batchOf(256, 0.5))
	h.session.Poll()
	if err := rec.StopRecording(); err != nil {
		t.Fatal(err)
	}

	got, err := acquisition.ReadWAV(path, acquisition.Range1V)
	if err != nil {
		t.Fatal(err)
	}
	if got.Batch.Len() != 256 {
		t.Errorf("recorded %d samples, want 256", got.Batch.Len())
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestSessionWithWorker(t *testing.T) {
	w := analysis.NewWorker()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	s := NewSession(w.Requests(), w.Results())
	s.Fill(acquisition.WaveformNoise, 4096)
	s.SetSegmentLength(512)
	if !s.RequestSpectrum() {
		t.Fatal("request not sent")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := s.PollSpectrum(); ok {
			if len(res.Spectrum) != 257 || res.SegmentLength != 512 {
				t.Errorf("result has %d bins, segment %d", len(res.Spectrum), res.SegmentLength)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for spectrum")
}

func TestSessionTick(t *testing.T) {
	h := newHarness(t)
	h.samples.Send(batchOf(100, 1))

	if _, ok := h.session.Tick(); ok {
		t.Error("Tick adopted a spectrum before any result")
	}
	if n := h.session.Samples(); n != 100 {
		t.Errorf("Tick absorbed %d samples, want 100", n)
	}
	req, ok := h.requests.TryRecv()
	if !ok || len(req.A) != 100 {
		t.Fatalf("Tick did not request the visible window (ok=%v, %d samples)", ok, len(req.A))
	}

	h.results.Send(analysis.Result{Spectrum: []float64{1, 2}, SegmentLength: 2, Sequence: req.Sequence})
	res, ok := h.session.Tick()
	if !ok || res.Sequence != req.Sequence {
		t.Errorf("Tick = %+v, %v", res, ok)
	}
	if h.requests.Len() != 0 {
		t.Error("unchanged window requested twice")
	}
}
