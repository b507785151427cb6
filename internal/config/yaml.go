// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"scope/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool              `yaml:"debug"`       // Enable debug mode (verbose logging).
	LogLevel    string            `yaml:"log_level"`   // Logging level.
	Acquisition AcquisitionConfig `yaml:"acquisition"` // Where samples come from.
	Analysis    AnalysisConfig    `yaml:"analysis"`    // Spectrum estimation settings.
	Display     DisplayConfig     `yaml:"display"`     // Terminal view settings.
	Recording   RecordingConfig   `yaml:"recording"`   // WAV recording settings.
	Transport   TransportConfig   `yaml:"transport"`   // Spectrum publishing settings.
}

// AcquisitionConfig selects and configures the sample source.
type AcquisitionConfig struct {
	Source          string `yaml:"source" validate:"oneof=generator device file"` // "generator", "device" or "file".
	Device          int    `yaml:"device" validate:"min=-1"`                      // PortAudio device index (-1 for default).
	FramesPerBuffer int    `yaml:"frames_per_buffer" validate:"min=16,max=8192"`  // Frames per PortAudio callback.
	LowLatency      bool   `yaml:"low_latency"`                                   // Request low latency settings from PortAudio.
	File            string `yaml:"file" validate:"required_if=Source file"`       // WAV file replayed by the file source.
	Waveform        string `yaml:"waveform"`                                      // Generator waveform ("sine", "noise").
	Range           string `yaml:"range"`                                         // Voltage range, e.g. "50mV" or "10V".
	Coupling        string `yaml:"coupling"`                                      // "ac" or "dc".
}

// AnalysisConfig holds the Welch estimator settings.
type AnalysisConfig struct {
	SegmentLength int    `yaml:"segment_length" validate:"min=10,max=1048576"` // Samples per Welch segment.
	Window        string `yaml:"window"`                                       // "Hann", "Hamming" or "Blackman".
}

// DisplayConfig holds the terminal consumer settings.
type DisplayConfig struct {
	TimeBase        string        `yaml:"time_base"`                              // "s", "ms" or "us".
	ViewMin         float64       `yaml:"view_min"`                               // Left edge of the view in time base units.
	ViewMax         float64       `yaml:"view_max" validate:"gtfield=ViewMin"`    // Right edge of the view in time base units.
	Follow          bool          `yaml:"follow"`                                 // Track the newest sample.
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gt=0"`       // Time between render passes.
	TracePoints     int           `yaml:"trace_points" validate:"min=2,max=4096"` // Points plotted per channel.
}

// RecordingConfig holds settings related to recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`                        // Record acquired samples to file.
	OutputDir string `yaml:"output_dir" validate:"required"` // Directory to save recorded files.
	Format    string `yaml:"format" validate:"oneof=wav"`    // File format for recordings.
}

// TransportConfig holds settings related to sending spectra over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`                                     // Serve spectra over WebSocket.
	WebSocketAddress string        `yaml:"websocket_address" validate:"omitempty,hostname_port"`  // Listen address.
	UDPEnabled       bool          `yaml:"udp_enabled"`                                           // Send spectra over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address" validate:"omitempty,hostname_port"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval" validate:"gte=0"`                    // Interval between UDP packets.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "scope.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		if path == "" {
			return nil, fmt.Errorf("invalid default configuration: %w", err)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides replaces loaded values with ENV_* variables when set.
// Unparseable values are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	logger := log.Named("config")

	boolEnv := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = b
			logger.Infof("overriding from %s: %v", name, b)
		}
	}
	stringEnv := func(name string, dst *string) {
		if val, ok := os.LookupEnv(name); ok {
			*dst = val
			logger.Infof("overriding from %s: %s", name, val)
		}
	}
	intEnv := func(name string, dst *int) {
		if val, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = n
			logger.Infof("overriding from %s: %d", name, n)
		}
	}
	durationEnv := func(name string, dst *time.Duration) {
		if val, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = d
			logger.Infof("overriding from %s: %s", name, d)
		}
	}

	// ENV_{...}
	// These are general overrides.
	boolEnv("ENV_DEBUG", &cfg.Debug)
	stringEnv("ENV_LOG_LEVEL", &cfg.LogLevel)

	// ENV_SOURCE, ENV_FILE, ENV_DEVICE
	stringEnv("ENV_SOURCE", &cfg.Acquisition.Source)
	stringEnv("ENV_FILE", &cfg.Acquisition.File)
	intEnv("ENV_DEVICE", &cfg.Acquisition.Device)

	// ENV_SEGMENT_LENGTH, ENV_WINDOW
	intEnv("ENV_SEGMENT_LENGTH", &cfg.Analysis.SegmentLength)
	stringEnv("ENV_WINDOW", &cfg.Analysis.Window)

	// ENV_WS_{...}
	boolEnv("ENV_WS_ENABLED", &cfg.Transport.WebSocketEnabled)
	stringEnv("ENV_WS_ADDRESS", &cfg.Transport.WebSocketAddress)

	// ENV_UDP_{...}
	// These are specific to the transport layer.
	boolEnv("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	stringEnv("ENV_UDP_TARGET_ADDRESS", &cfg.Transport.UDPTargetAddress)
	durationEnv("ENV_UDP_SEND_INTERVAL", &cfg.Transport.UDPSendInterval)
}
