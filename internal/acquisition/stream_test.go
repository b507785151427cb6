// SPDX-License-Identifier: MIT
package acquisition

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"scope/internal/mpsc"
)

// fakeSource records its lifecycle and exposes the sender it was given.
type fakeSource struct {
	starts   []Settings
	stops    int
	tx       *mpsc.Sender[SampleBatch]
	startErr error
}

func (f *fakeSource) Start(settings Settings, tx *mpsc.Sender[SampleBatch]) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, settings)
	f.tx = tx
	return nil
}

func (f *fakeSource) Stop() error {
	f.stops++
	return nil
}

func TestStreamStartStop(t *testing.T) {
	src := &fakeSource{}
	s := NewStream(src, Settings{Range: Range5V})

	if s.ID() != uuid.Nil {
		t.Error("ID set before first start")
	}

	rx, err := s.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Streaming() || s.ID() == uuid.Nil {
		t.Error("stream not marked running")
	}

	if !src.tx.Send(SampleBatch{A: []float64{1}, B: []float64{2}}) {
		t.Fatal("source could not send")
	}
	if b, ok := rx.TryRecv(); !ok || b.A[0] != 1 || b.B[0] != 2 {
		t.Errorf("TryRecv = (%v, %v)", b, ok)
	}

	if _, err := s.Start(); !errors.Is(err, ErrStreamRunning) {
		t.Errorf("second Start = %v, want ErrStreamRunning", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrNotStreaming) {
		t.Errorf("second Stop = %v, want ErrNotStreaming", err)
	}
	if src.stops != 1 {
		t.Errorf("source stopped %d times, want 1", src.stops)
	}
}

func TestStreamFreshChannelPerStart(t *testing.T) {
	src := &fakeSource{}
	s := NewStream(src, Settings{Range: Range1V})

	first, _ := s.Start()
	firstID := s.ID()
	oldTx := src.tx
	oldTx.Send(SampleBatch{A: []float64{1}, B: []float64{1}})
	_ = s.Stop()

	second, err := s.Start()
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("restart reused the receiver")
	}
	if s.ID() == firstID {
		t.Error("restart reused the stream ID")
	}

	src.tx.Send(SampleBatch{A: []float64{2}, B: []float64{2}})
	if second.Len() != 1 {
		t.Errorf("new receiver holds %d batches, want 1", second.Len())
	}
	if first.Len() != 1 {
		t.Errorf("old receiver holds %d batches, want the 1 queued before stop", first.Len())
	}
}

func TestStreamSetRangeRestarts(t *testing.T) {
	src := &fakeSource{}
	s := NewStream(src, Settings{Range: Range10V})

	if rx, err := s.SetRange(Range2V); err != nil || rx != nil {
		t.Errorf("SetRange while stopped = (%v, %v), want (nil, nil)", rx, err)
	}
	if len(src.starts) != 0 {
		t.Error("source started by SetRange while stopped")
	}

	if _, err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if rx, err := s.SetRange(Range2V); err != nil || rx != nil {
		t.Errorf("SetRange to same range = (%v, %v), want no restart", rx, err)
	}

	rx, err := s.SetRange(Range500mV)
	if err != nil || rx == nil {
		t.Fatalf("SetRange = (%v, %v), want a new receiver", rx, err)
	}
	if len(src.starts) != 2 || src.starts[1].Range != Range500mV {
		t.Errorf("starts = %+v", src.starts)
	}

	rx, err = s.SetCoupling(CouplingDC)
	if err != nil || rx == nil {
		t.Fatalf("SetCoupling = (%v, %v), want a new receiver", rx, err)
	}
	if got := s.Settings(); got.Coupling != CouplingDC || got.Range != Range500mV {
		t.Errorf("Settings() = %+v", got)
	}

	if _, err := s.SetRange(VoltageRange(99)); err == nil {
		t.Error("expected error for invalid range")
	}
}

func TestStreamStartError(t *testing.T) {
	src := &fakeSource{startErr: errors.New("no device")}
	s := NewStream(src, Settings{})
	if _, err := s.Start(); err == nil {
		t.Fatal("expected error")
	}
	if s.Streaming() {
		t.Error("stream marked running after failed start")
	}
}
