// SPDX-License-Identifier: MIT
package acquisition

import (
	"errors"
	"math"
	"testing"
	"time"

	"scope/internal/mpsc"
)

func TestGeneratorSine(t *testing.T) {
	g := NewGenerator(WaveformSine)
	b := g.Batch(0, 100, Range10V, nil)
	if b.Len() != 100 {
		t.Fatalf("Len = %d", b.Len())
	}
	if b.A[0] != 0 || b.B[0] != 5 {
		t.Errorf("first sample = (%g, %g), want (0, 5)", b.A[0], b.B[0])
	}

	// A quarter period of the 5 Hz tone is 50 ms = 2500 samples.
	q := g.Batch(2500, 1, Range10V, nil)
	if math.Abs(q.A[0]-3) > 1e-9 {
		t.Errorf("A at quarter period = %g, want 3", q.A[0])
	}
}

func TestGeneratorClipsToRange(t *testing.T) {
	g := NewGenerator(WaveformSine)
	b := g.Batch(0, 50000, Range1V, nil)
	for i := range b.Len() {
		if math.Abs(b.A[i]) > 1 || math.Abs(b.B[i]) > 1 {
			t.Fatalf("sample %d = (%g, %g) exceeds 1 V", i, b.A[i], b.B[i])
		}
	}
}

func TestGeneratorNoiseDeterministic(t *testing.T) {
	g := NewGenerator(WaveformNoise)
	g.Seed = 42
	a := g.Batch(0, 64, Range20V, nil)
	b := g.Batch(0, 64, Range20V, nil)
	for i := range a.Len() {
		if a.A[i] != b.A[i] || a.B[i] != b.B[i] {
			t.Fatal("noise with equal seed and start differs")
		}
	}
}

func TestGeneratorStreams(t *testing.T) {
	g := NewGenerator(WaveformSine)
	g.Interval = time.Millisecond
	tx, rx := mpsc.Make[SampleBatch]()

	if err := g.Start(Settings{Range: Range10V}, tx); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(Settings{Range: Range10V}, tx); !errors.Is(err, ErrStreamRunning) {
		t.Errorf("second Start = %v, want ErrStreamRunning", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for rx.Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := g.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := g.Stop(); !errors.Is(err, ErrNotStreaming) {
		t.Errorf("second Stop = %v, want ErrNotStreaming", err)
	}

	// Batches must be contiguous: the first sample of each continues the tone.
	batches := rx.FlushNoBlock()
	if len(batches) < 3 {
		t.Fatalf("got %d batches, want at least 3", len(batches))
	}
	total := 0
	for _, b := range batches {
		want := g.Batch(total, 1, Range10V, nil)
		if math.Abs(b.A[0]-want.A[0]) > 1e-12 {
			t.Fatalf("batch at sample %d starts at %g, want %g", total, b.A[0], want.A[0])
		}
		total += b.Len()
	}
}

func TestGeneratorStopsWhenReceiverCloses(t *testing.T) {
	g := NewGenerator(WaveformNoise)
	g.Interval = time.Millisecond
	tx, rx := mpsc.Make[SampleBatch]()
	if err := g.Start(Settings{Range: Range1V}, tx); err != nil {
		t.Fatal(err)
	}
	rx.Close()

	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generator kept running after receiver closed")
	}
	_ = g.Stop()
}

func TestParseWaveform(t *testing.T) {
	if w, err := ParseWaveform("Noise"); err != nil || w != WaveformNoise {
		t.Errorf("ParseWaveform(Noise) = (%v, %v)", w, err)
	}
	if _, err := ParseWaveform("square"); err == nil {
		t.Error("expected error for unknown waveform")
	}
}
