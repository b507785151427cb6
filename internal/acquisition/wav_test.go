// SPDX-License-Identifier: MIT
package acquisition

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scope/internal/mpsc"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	gen := NewGenerator(WaveformSine)
	batch := gen.Batch(0, 5000, Range10V, nil)

	var rec Recorder
	if err := rec.StartRecording(path, Range10V); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !rec.Recording() {
		t.Error("Recorder should be in recording state")
	}
	half := batch.Len() / 2
	if err := rec.Write(SampleBatch{A: batch.A[:half], B: batch.B[:half]}); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write(SampleBatch{A: batch.A[half:], B: batch.B[half:]}); err != nil {
		t.Fatal(err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	got, err := ReadWAV(path, Range10V)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if got.SampleRate != SampleRate || got.BitDepth != RecordingBitDepth {
		t.Errorf("format = %g Hz / %d bit", got.SampleRate, got.BitDepth)
	}
	if got.Batch.Len() != batch.Len() {
		t.Fatalf("read %d samples, wrote %d", got.Batch.Len(), batch.Len())
	}

	tol := 2 * Range10V.FullScale() / 32767
	for i := range batch.Len() {
		if math.Abs(got.Batch.A[i]-batch.A[i]) > tol || math.Abs(got.Batch.B[i]-batch.B[i]) > tol {
			t.Fatalf("sample %d = (%g, %g), want (%g, %g)", i,
				got.Batch.A[i], got.Batch.B[i], batch.A[i], batch.B[i])
		}
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	var rec Recorder
	if err := rec.StopRecording(); err != nil {
		t.Errorf("StopRecording when idle: %v", err)
	}
	if err := rec.Write(SampleBatch{A: []float64{1}, B: []float64{1}}); err != nil {
		t.Errorf("Write when idle: %v", err)
	}

	if err := rec.StartRecording("/nonexistent/path/file.wav", Range1V); err == nil {
		t.Error("expected error for invalid path")
	}
	if rec.Recording() {
		t.Error("recording state set after failed start")
	}

	if err := rec.StartRecording(filepath.Join(dir, "a.wav"), Range1V); err != nil {
		t.Fatal(err)
	}
	defer rec.StopRecording()
	if err := rec.StartRecording(filepath.Join(dir, "b.wav"), Range1V); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second StartRecording = %v, want ErrAlreadyRecording", err)
	}
}

func TestToPCMClips(t *testing.T) {
	if v := toPCM(25, 10, 32767); v != 32767 {
		t.Errorf("toPCM over range = %d", v)
	}
	if v := toPCM(-25, 10, 32767); v != -32767 {
		t.Errorf("toPCM under range = %d", v)
	}
	if v := toPCM(5, 10, 32767); v != 16384 {
		t.Errorf("toPCM half scale = %d", v)
	}
}

func TestReadWAVErrors(t *testing.T) {
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"), Range1V); err == nil {
		t.Error("expected error for missing file")
	}

	junk := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(junk, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAV(junk, Range1V); err == nil {
		t.Error("expected error for invalid file")
	}
}

func TestFileSourceReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.wav")
	batch := NewGenerator(WaveformSine).Batch(0, 2500, Range5V, nil)

	var rec Recorder
	if err := rec.StartRecording(path, Range5V); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write(batch); err != nil {
		t.Fatal(err)
	}
	if err := rec.StopRecording(); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path)
	src.Chunk = 1000
	src.Paced = false
	tx, rx := mpsc.Make[SampleBatch]()
	if err := src.Start(Settings{Range: Range5V}, tx); err != nil {
		t.Fatal(err)
	}

	var sizes []int
	deadline := time.Now().Add(5 * time.Second)
	for len(sizes) < 3 && time.Now().Before(deadline) {
		for _, b := range rx.FlushNoBlock() {
			sizes = append(sizes, b.Len())
		}
		time.Sleep(time.Millisecond)
	}
	_ = src.Stop()

	if len(sizes) != 3 || sizes[0] != 1000 || sizes[1] != 1000 || sizes[2] != 500 {
		t.Errorf("batch sizes = %v, want [1000 1000 500]", sizes)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.wav"))
	tx, _ := mpsc.Make[SampleBatch]()
	if err := src.Start(Settings{Range: Range1V}, tx); err == nil {
		t.Error("expected error for missing file")
	}
}
