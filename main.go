// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"scope/cmd"
	"scope/internal/acquisition"
	"scope/internal/log"
	"scope/internal/tui"
	"scope/pkg/build"
)

// main is the entry point for the scope.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the analysis worker and the acquisition stream
//   - Start recording and transports if enabled
//   - Run the terminal UI or the headless loop
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop acquisition, recording and the worker
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("build: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if errors.Is(err, cmd.ErrHandled) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if level, ok := log.ParseLevel(opts.Config.LogLevel); ok {
		log.SetLevel(level)
	}
	if opts.Config.Debug {
		log.SetLevel(log.LevelDebug)
	}

	// Handle one-off commands that don't require the scope to be running.
	if opts.Command != cmd.CommandRun {
		if err := executeCommand(opts); err != nil {
			log.Fatalf("%s: %v", opts.Command, err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	app, err := newApp(opts)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := app.start(); err != nil {
		app.close()
		log.Fatalf("startup: %v", err)
	}

	if opts.Headless {
		err = app.runHeadless(ctx)
	} else {
		err = app.runTUI(ctx)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	app.close()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// executeCommand handles one-off commands that don't need the scope running.
func executeCommand(opts *cmd.Options) error {
	switch opts.Command {
	case cmd.CommandVersion:
		fmt.Println(build.Get())
		return nil

	case cmd.CommandPSD:
		return cmd.WritePSD(os.Stdout, opts.Args[0], opts.Format, opts.Config)

	case cmd.CommandList:
		if err := acquisition.Initialize(); err != nil {
			return err
		}
		defer acquisition.Terminate()

		if opts.Interactive {
			id, err := tui.PickDevice(acquisition.Devices)
			if err != nil {
				return err
			}
			fmt.Printf("Selected device: %d\n", id)
			return nil
		}
		devices, err := acquisition.Devices()
		if err != nil {
			return err
		}
		acquisition.WriteDevices(os.Stdout, devices)
		return nil

	default:
		return fmt.Errorf("unknown command '%s'", opts.Command)
	}
}
