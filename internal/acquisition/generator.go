// SPDX-License-Identifier: MIT
package acquisition

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"scope/internal/mpsc"
)

// Waveform selects what a Generator produces.
type Waveform int

const (
	// WaveformSine drives channel A with a sine and channel B with a cosine.
	WaveformSine Waveform = iota
	// WaveformNoise drives both channels with independent Gaussian noise.
	WaveformNoise
)

func (w Waveform) String() string {
	if w == WaveformNoise {
		return "noise"
	}
	return "sine"
}

// ParseWaveform parses "sine" or "noise" (case-insensitive).
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return WaveformSine, nil
	case "noise":
		return WaveformNoise, nil
	default:
		return WaveformSine, fmt.Errorf("unknown waveform: '%s'", name)
	}
}

// Tone is the amplitude in volts and frequency in Hz of one channel.
type Tone struct {
	Amplitude float64
	Frequency float64
}

// Generator is a synthetic Source. It is used for demos and tests and when no
// hardware is attached.
type Generator struct {
	Waveform Waveform
	A, B     Tone
	Interval time.Duration // time between deliveries
	Seed     uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewGenerator returns a generator with the default tones: a 3 V, 5 Hz sine
// on A and a 5 V, 2 Hz cosine on B, delivered every 10 ms.
func NewGenerator(w Waveform) *Generator {
	return &Generator{
		Waveform: w,
		A:        Tone{Amplitude: 3, Frequency: 5},
		B:        Tone{Amplitude: 5, Frequency: 2},
		Interval: 10 * time.Millisecond,
		Seed:     uint64(time.Now().UnixNano()),
	}
}

// Batch synthesises n samples starting at sample index start, clipped to
// the full scale of r. rng is only used for noise and may be nil.
func (g *Generator) Batch(start, n int, r VoltageRange, rng *rand.Rand) SampleBatch {
	if rng == nil {
		rng = rand.New(rand.NewPCG(g.Seed, uint64(start)))
	}
	limit := r.FullScale()
	dt := SamplePeriod.Seconds()

	batch := SampleBatch{A: make([]float64, n), B: make([]float64, n)}
	for i := range n {
		t := float64(start+i) * dt
		var a, b float64
		switch g.Waveform {
		case WaveformNoise:
			a = g.A.Amplitude * rng.NormFloat64()
			b = g.B.Amplitude * rng.NormFloat64()
		default:
			a = g.A.Amplitude * math.Sin(2*math.Pi*g.A.Frequency*t)
			b = g.B.Amplitude * math.Cos(2*math.Pi*g.B.Frequency*t)
		}
		batch.A[i] = clip(a, limit)
		batch.B[i] = clip(b, limit)
	}
	return batch
}

func clip(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// Start launches the delivery goroutine. Each tick delivers the samples that
// elapsed since the previous one.
func (g *Generator) Start(settings Settings, tx *mpsc.Sender[SampleBatch]) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stop != nil {
		return ErrStreamRunning
	}
	interval := g.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	go g.run(settings.Range, interval, tx, g.stop, g.done)
	return nil
}

func (g *Generator) run(r VoltageRange, interval time.Duration, tx *mpsc.Sender[SampleBatch], stop, done chan struct{}) {
	defer close(done)

	rng := rand.New(rand.NewPCG(g.Seed, g.Seed>>1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	begin := time.Now()
	sent := 0
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			due := int(now.Sub(begin) / SamplePeriod)
			if due <= sent {
				continue
			}
			if !tx.Send(g.Batch(sent, due-sent, r, rng)) {
				return
			}
			sent = due
		}
	}
}

// Stop ends delivery and waits for the goroutine to exit.
func (g *Generator) Stop() error {
	g.mu.Lock()
	stop, done := g.stop, g.done
	g.stop, g.done = nil, nil
	g.mu.Unlock()

	if stop == nil {
		return ErrNotStreaming
	}
	close(stop)
	<-done
	return nil
}

var _ Source = (*Generator)(nil)
