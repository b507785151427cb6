// SPDX-License-Identifier: MIT
package acquisition

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"scope/internal/mpsc"
)

// DefaultDeviceID selects the system default input device.
const DefaultDeviceID = -1

// Device describes an audio device usable as a two-channel input.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
}

// Kind returns "Input", "Output" or "Input/Output".
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any device operations and paired with a Terminate() call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Devices returns every device PortAudio reports. PortAudio must be
// initialised.
func Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowInputLatency:   info.DefaultLowInputLatency,
			HighInputLatency:  info.DefaultHighInputLatency,
		}
	}
	return devices, nil
}

// WriteDevices prints a human readable device list to w.
func WriteDevices(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}
}

// inputDevice resolves deviceID, DefaultDeviceID meaning the system default.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == DefaultDeviceID {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels < 2 {
		return nil, fmt.Errorf("device %d (%s) has fewer than 2 input channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// DeviceSource acquires channels A and B from the first two inputs of a
// PortAudio device.
type DeviceSource struct {
	DeviceID        int
	SampleRate      float64
	FramesPerBuffer int
	LowLatency      bool

	mu        sync.Mutex
	stream    *portaudio.Stream
	tx        *mpsc.Sender[SampleBatch]
	fullScale float64
}

// NewDeviceSource returns a source for deviceID at the scope sample rate.
func NewDeviceSource(deviceID int) *DeviceSource {
	return &DeviceSource{
		DeviceID:        deviceID,
		SampleRate:      SampleRate,
		FramesPerBuffer: 1024,
	}
}

// Start opens and starts a stereo input stream.
func (s *DeviceSource) Start(settings Settings, tx *mpsc.Sender[SampleBatch]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return ErrStreamRunning
	}

	device, err := inputDevice(s.DeviceID)
	if err != nil {
		return err
	}
	latency := device.DefaultHighInputLatency
	if s.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 2,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: s.FramesPerBuffer,
		SampleRate:      s.SampleRate,
	}

	s.tx = tx
	s.fullScale = settings.Range.FullScale()

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	s.stream = stream
	return nil
}

// process runs on the PortAudio callback thread. The interleaved frames are
// converted to volts and handed off as one batch.
func (s *DeviceSource) process(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := len(in) / 2
	batch := SampleBatch{A: make([]float64, n), B: make([]float64, n)}
	scale := s.fullScale / math.MaxInt32
	for i := range n {
		batch.A[i] = float64(in[2*i]) * scale
		batch.B[i] = float64(in[2*i+1]) * scale
	}
	s.tx.Send(batch)
}

// Stop stops and closes the input stream.
func (s *DeviceSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrNotStreaming
	}
	stream := s.stream
	s.stream = nil

	if err := stream.Stop(); err != nil {
		return err
	}
	return stream.Close()
}

var _ Source = (*DeviceSource)(nil)
