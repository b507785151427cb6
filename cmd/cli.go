// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"scope/internal/config"
	"scope/pkg/build"
)

// Commands selected on the command line. An empty command runs the scope.
const (
	CommandRun     = ""
	CommandList    = "list"
	CommandPSD     = "psd"
	CommandVersion = "version"
)

// Options is the outcome of parsing the command line.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Command    string
	Args       []string

	// run
	Headless   bool          // no terminal UI, log spectra until interrupted
	Duration   time.Duration // stop after this long; 0 runs until interrupted
	PickDevice bool          // choose the input device interactively
	OutputFile string        // recording file; generated when empty

	// list
	Interactive bool

	// psd
	Format string // "csv" or "json"
}

// flagValues collects flag values before they are merged into the config.
type flagValues struct {
	source          string
	file            string
	device          int
	framesPerBuffer int
	lowLatency      bool
	waveform        string
	voltageRange    string
	coupling        string
	segmentLength   int
	window          string
	timeBase        string
	record          bool
	websocket       string
	udp             string
	verbose         bool
	logLevel        string
}

// ParseArgs parses args (without the program name), loads the configuration
// and applies the flags that were given on top of it.
func ParseArgs(args []string) (*Options, error) {
	info := build.Get()
	opts := &Options{Format: "csv"}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Browse devices in a terminal UI")
	rootCmd.AddCommand(listCmd)

	// PSD command
	psdCmd := &cobra.Command{
		Use:   "psd <file.wav>",
		Short: "Print the transfer-function spectrum of a two-channel WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "csv" && opts.Format != "json" {
				return fmt.Errorf("unknown output format '%s' (want csv or json)", opts.Format)
			}
			opts.Command = CommandPSD
			opts.Args = args
			return nil
		},
	}
	psdCmd.Flags().StringVarP(&opts.Format, "format", "f", "csv", "Output format: csv or json")
	rootCmd.AddCommand(psdCmd)

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandVersion
			return nil
		},
	})

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVar(&opts.ConfigPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml when present)")

	// Acquisition
	pf.StringVar(&fv.source, "source", config.DefaultSource,
		"Sample source: generator, device or file")
	pf.StringVar(&fv.file, "file", "",
		"WAV file replayed by the file source")
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVar(&fv.waveform, "waveform", config.DefaultWaveform,
		"Generator waveform: sine or noise")
	pf.StringVar(&fv.voltageRange, "range", config.DefaultVoltageRange,
		"Voltage range, 50mV to 20V")
	pf.StringVar(&fv.coupling, "coupling", config.DefaultCoupling,
		"Input coupling: ac or dc")

	// Analysis
	pf.IntVarP(&fv.segmentLength, "segment-length", "n", config.DefaultSegmentLength,
		"Welch segment length in samples")
	pf.StringVarP(&fv.window, "window", "w", config.DefaultWindow,
		"Window function: Hann, Hamming or Blackman")

	// Display
	pf.StringVar(&fv.timeBase, "time-base", config.DefaultTimeBase,
		"Time base: s, ms or us")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", config.DefaultRecordingEnabled,
		"Record acquired samples to a WAV file")
	pf.StringVarP(&opts.OutputFile, "output", "o", "",
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Transport
	pf.StringVar(&fv.websocket, "websocket", "",
		"Serve spectra over WebSocket on this address")
	pf.StringVar(&fv.udp, "udp", "",
		"Send spectra as UDP packets to this address")

	// Run mode
	rootCmd.Flags().BoolVar(&opts.Headless, "headless", false,
		"Run without the terminal UI and log each spectrum")
	rootCmd.Flags().DurationVar(&opts.Duration, "duration", 0,
		"Stop after this long (0 runs until interrupted)")
	rootCmd.Flags().BoolVar(&opts.PickDevice, "pick-device", false,
		"Choose the input device interactively before starting")

	// Debug Configuration
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn or error")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(opts.ConfigPath)
		if err != nil {
			return err
		}
		applyFlags(cmd.Flags(), &fv, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		opts.Config = cfg
		return nil
	}

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if opts.Config == nil {
		// --help and --version return before any RunE.
		return nil, ErrHandled
	}

	if opts.OutputFile == "" {
		opts.OutputFile = "recording-" + time.Now().UTC().Format("01-02-2006-150405") + ".wav"
	}
	return opts, nil
}

// ErrHandled is returned by ParseArgs when cobra already answered the
// invocation, for example with --help.
var ErrHandled = errors.New("command line handled")

// applyFlags copies every flag the user set onto cfg. Flags left at their
// defaults do not override the config file.
func applyFlags(fs *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("source", func() { cfg.Acquisition.Source = fv.source })
	set("file", func() {
		cfg.Acquisition.File = fv.file
		if !fs.Changed("source") {
			cfg.Acquisition.Source = config.SourceFile
		}
	})
	set("device", func() {
		cfg.Acquisition.Device = fv.device
		if !fs.Changed("source") {
			cfg.Acquisition.Source = config.SourceDevice
		}
	})
	set("frames-per-buffer", func() { cfg.Acquisition.FramesPerBuffer = fv.framesPerBuffer })
	set("low-latency", func() { cfg.Acquisition.LowLatency = fv.lowLatency })
	set("waveform", func() { cfg.Acquisition.Waveform = fv.waveform })
	set("range", func() { cfg.Acquisition.Range = fv.voltageRange })
	set("coupling", func() { cfg.Acquisition.Coupling = fv.coupling })
	set("segment-length", func() { cfg.Analysis.SegmentLength = fv.segmentLength })
	set("window", func() { cfg.Analysis.Window = fv.window })
	set("time-base", func() { cfg.Display.TimeBase = fv.timeBase })
	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("websocket", func() {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = fv.websocket
	})
	set("udp", func() {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = fv.udp
	})
	set("log-level", func() { cfg.LogLevel = fv.logLevel })
	set("verbose", func() {
		cfg.Debug = fv.verbose
		if fv.verbose {
			cfg.LogLevel = "debug"
		}
	})
}
