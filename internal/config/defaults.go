// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults for every configurable value. They are used when no config file
// is found and as the base that a config file is decoded over.
const (
	DefaultLogLevel = "info"

	// Acquisition
	DefaultSource          = SourceGenerator
	DefaultDeviceID        = -1 // -1 represents system default device
	DefaultFramesPerBuffer = 1024
	DefaultLowLatency      = false
	DefaultWaveform        = "sine"
	DefaultVoltageRange    = "10V"
	DefaultCoupling        = "dc"

	// Analysis
	DefaultSegmentLength = 1024
	DefaultWindow        = "Hann"

	// Display
	DefaultTimeBase        = "s"
	DefaultViewMin         = 0.0
	DefaultViewMax         = 10.0
	DefaultFollow          = true
	DefaultRefreshInterval = 50 * time.Millisecond
	DefaultTracePoints     = 200

	// Recording
	DefaultRecordingEnabled = false
	DefaultOutputDir        = "./recordings"
	DefaultFormat           = "wav"

	// Transport
	DefaultWebSocketEnabled = false
	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPEnabled       = false
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Limits
	MinSegmentLength   = 10
	MaxSegmentLength   = 1 << 20
	MaxFramesPerBuffer = 8192
)

// Acquisition sources.
const (
	SourceGenerator = "generator"
	SourceDevice    = "device"
	SourceFile      = "file"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Acquisition: AcquisitionConfig{
			Source:          DefaultSource,
			Device:          DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Waveform:        DefaultWaveform,
			Range:           DefaultVoltageRange,
			Coupling:        DefaultCoupling,
		},
		Analysis: AnalysisConfig{
			SegmentLength: DefaultSegmentLength,
			Window:        DefaultWindow,
		},
		Display: DisplayConfig{
			TimeBase:        DefaultTimeBase,
			ViewMin:         DefaultViewMin,
			ViewMax:         DefaultViewMax,
			Follow:          DefaultFollow,
			RefreshInterval: DefaultRefreshInterval,
			TracePoints:     DefaultTracePoints,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordingEnabled,
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
		},
		Transport: TransportConfig{
			WebSocketEnabled: DefaultWebSocketEnabled,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
