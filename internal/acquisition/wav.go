// SPDX-License-Identifier: MIT
package acquisition

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"scope/internal/mpsc"
)

// ErrAlreadyRecording is returned by StartRecording while a recording is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recording is a decoded two-channel WAV file.
type Recording struct {
	Batch      SampleBatch
	SampleRate float64
	BitDepth   int
}

// ReadWAV decodes a WAV file with at least two channels. The first channel
// becomes A and the second B; full-scale PCM maps to the full scale of r.
func ReadWAV(path string, r VoltageRange) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if dec.NumChans < 2 {
		return nil, fmt.Errorf("%s: need 2 channels, file has %d", path, dec.NumChans)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	chans := int(dec.NumChans)
	frames := len(buf.Data) / chans
	scale := r.FullScale() / math.Exp2(float64(dec.BitDepth-1))

	rec := &Recording{
		Batch: SampleBatch{
			A: make([]float64, frames),
			B: make([]float64, frames),
		},
		SampleRate: float64(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	for i := range frames {
		rec.Batch.A[i] = float64(buf.Data[i*chans]) * scale
		rec.Batch.B[i] = float64(buf.Data[i*chans+1]) * scale
	}
	return rec, nil
}

// FileSource replays a WAV file as if it were being acquired live.
type FileSource struct {
	Path  string
	Chunk int  // samples per delivered batch
	Paced bool // deliver in real time rather than as fast as possible

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewFileSource returns a paced source delivering 1024-sample batches.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Chunk: 1024, Paced: true}
}

// Start decodes the file and begins delivery. Decoding errors are returned
// here rather than from the delivery goroutine.
func (s *FileSource) Start(settings Settings, tx *mpsc.Sender[SampleBatch]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return ErrStreamRunning
	}
	rec, err := ReadWAV(s.Path, settings.Range)
	if err != nil {
		return err
	}
	chunk := s.Chunk
	if chunk <= 0 {
		chunk = 1024
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(rec.Batch, chunk, tx, s.stop, s.done)
	return nil
}

func (s *FileSource) run(all SampleBatch, chunk int, tx *mpsc.Sender[SampleBatch], stop, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if s.Paced {
		ticker := time.NewTicker(time.Duration(chunk) * SamplePeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for left := 0; left < all.Len(); left += chunk {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		right := min(left+chunk, all.Len())
		if !tx.Send(SampleBatch{A: all.A[left:right:right], B: all.B[left:right:right]}) {
			return
		}
	}
}

// Stop ends delivery early. It is safe to call after the file is exhausted.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return ErrNotStreaming
	}
	close(stop)
	<-done
	return nil
}

var _ Source = (*FileSource)(nil)

// Recorder writes acquired batches to a stereo 16-bit WAV file.
type Recorder struct {
	mu         sync.Mutex
	recording  bool
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // reused between writes
	fullScale  float64
}

// RecordingBitDepth is the PCM depth of recorded files.
const RecordingBitDepth = 16

// StartRecording creates filename and prepares the encoder. Samples are
// scaled so that the full scale of r maps to full-scale PCM.
func (rec *Recorder) StartRecording(filename string, r VoltageRange) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.recording {
		return ErrAlreadyRecording
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	rec.outputFile = file
	rec.wavEncoder = wav.NewEncoder(file, int(SampleRate), RecordingBitDepth, 2, 1)
	rec.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  int(SampleRate),
		},
		SourceBitDepth: RecordingBitDepth,
	}
	rec.fullScale = r.FullScale()
	rec.recording = true
	return nil
}

// Write appends batch to the open recording. It is a no-op when not
// recording.
func (rec *Recorder) Write(batch SampleBatch) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.recording {
		return nil
	}

	n := batch.Len()
	if cap(rec.sampleBuf.Data) < 2*n {
		rec.sampleBuf.Data = make([]int, 2*n)
	}
	rec.sampleBuf.Data = rec.sampleBuf.Data[:2*n]

	const maxPCM = 1<<(RecordingBitDepth-1) - 1
	for i := range n {
		rec.sampleBuf.Data[2*i] = toPCM(batch.A[i], rec.fullScale, maxPCM)
		rec.sampleBuf.Data[2*i+1] = toPCM(batch.B[i], rec.fullScale, maxPCM)
	}
	return rec.wavEncoder.Write(rec.sampleBuf)
}

func toPCM(v, fullScale float64, maxPCM int) int {
	x := math.Round(v / fullScale * float64(maxPCM))
	return int(math.Max(-float64(maxPCM), math.Min(float64(maxPCM), x)))
}

// Recording reports whether a recording is open.
func (rec *Recorder) Recording() bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.recording
}

// StopRecording finalises the WAV headers and closes the file.
func (rec *Recorder) StopRecording() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.recording {
		return nil
	}
	rec.recording = false

	if rec.wavEncoder != nil {
		if err := rec.wavEncoder.Close(); err != nil {
			return err
		}
		rec.wavEncoder = nil
	}

	if rec.outputFile != nil {
		if err := rec.outputFile.Close(); err != nil {
			return err
		}
		rec.outputFile = nil
	}
	return nil
}
