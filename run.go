// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scope/cmd"
	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/config"
	"scope/internal/log"
	"scope/internal/scope"
	"scope/internal/transport"
	"scope/internal/transport/udp"
	"scope/internal/tui"
)

// app owns every long-lived component of a scope run.
type app struct {
	opts      *cmd.Options
	cfg       *config.Config
	logger    *log.Logger
	portaudio bool

	stream    *acquisition.Stream
	worker    *analysis.Worker
	session   *scope.Session
	recorder  *acquisition.Recorder
	recPath   string
	transport transport.Multi
	udpSender *udp.UDPSender
	publisher *udp.UDPPublisher
}

func newApp(opts *cmd.Options) (*app, error) {
	a := &app{opts: opts, cfg: opts.Config, logger: log.Named("main")}

	source, err := a.newSource()
	if err != nil {
		a.close()
		return nil, err
	}
	settings, err := acquisitionSettings(a.cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.stream = acquisition.NewStream(source, settings)

	a.worker = analysis.NewWorker()
	a.session = scope.NewSession(a.worker.Requests(), a.worker.Results())
	if err := configureSession(a.session, a.cfg, settings.Range); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) newSource() (acquisition.Source, error) {
	acq := a.cfg.Acquisition
	switch acq.Source {
	case config.SourceDevice:
		if err := acquisition.Initialize(); err != nil {
			return nil, err
		}
		a.portaudio = true

		id := acq.Device
		if a.opts.PickDevice {
			picked, err := tui.PickDevice(acquisition.Devices)
			if err != nil {
				return nil, err
			}
			id = picked
		}
		src := acquisition.NewDeviceSource(id)
		src.FramesPerBuffer = acq.FramesPerBuffer
		src.LowLatency = acq.LowLatency
		return src, nil

	case config.SourceFile:
		return acquisition.NewFileSource(acq.File), nil

	default:
		w, err := acquisition.ParseWaveform(acq.Waveform)
		if err != nil {
			return nil, err
		}
		return acquisition.NewGenerator(w), nil
	}
}

func acquisitionSettings(cfg *config.Config) (acquisition.Settings, error) {
	r, err := acquisition.ParseVoltageRange(cfg.Acquisition.Range)
	if err != nil {
		return acquisition.Settings{}, err
	}
	c, err := acquisition.ParseCoupling(cfg.Acquisition.Coupling)
	if err != nil {
		return acquisition.Settings{}, err
	}
	return acquisition.Settings{Range: r, Coupling: c}, nil
}

func configureSession(s *scope.Session, cfg *config.Config, r acquisition.VoltageRange) error {
	tb, err := scope.ParseTimeBase(cfg.Display.TimeBase)
	if err != nil {
		return err
	}
	win, err := analysis.ParseWindow(cfg.Analysis.Window)
	if err != nil {
		return err
	}
	s.SetTimeBase(tb)
	if err := s.SetView(scope.View{Min: cfg.Display.ViewMin, Max: cfg.Display.ViewMax}); err != nil {
		return err
	}
	s.SetFollow(cfg.Display.Follow)
	s.SetVoltageRange(r)
	s.SetSegmentLength(cfg.Analysis.SegmentLength)
	s.SetWindow(win)
	return nil
}

// start launches the worker, acquisition, recording and transports.
func (a *app) start() error {
	if err := a.worker.Start(); err != nil {
		return err
	}

	if a.cfg.Recording.Enabled {
		if err := a.startRecording(); err != nil {
			return err
		}
	}

	a.transport = transport.Multi{transport.NewLoggingTransport()}
	if a.cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(a.cfg.Transport.WebSocketAddress)
		if err != nil {
			return fmt.Errorf("websocket: %w", err)
		}
		a.transport = append(a.transport, ws)
	}
	if a.cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(a.cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("udp: %w", err)
		}
		a.udpSender = sender
		a.publisher, err = udp.NewUDPPublisher(a.cfg.Transport.UDPSendInterval, sender, a.session)
		if err != nil {
			return fmt.Errorf("udp: %w", err)
		}
		a.publisher.Start()
	}

	rx, err := a.stream.Start()
	if err != nil {
		return err
	}
	a.session.Attach(rx)
	a.logger.Infof("stream %s started (%s)", a.stream.ID(), a.cfg.Acquisition.Source)
	return nil
}

func (a *app) startRecording() error {
	dir := a.cfg.Recording.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	path := a.opts.OutputFile
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(dir, path)
	}

	a.recorder = &acquisition.Recorder{}
	if err := a.recorder.StartRecording(path, a.session.VoltageRange()); err != nil {
		return err
	}
	a.session.SetRecorder(a.recorder)
	a.recPath = path
	a.logger.Infof("recording to %s", path)
	return nil
}

func (a *app) streamID() string {
	return a.stream.ID().String()
}

func (a *app) runTUI(ctx context.Context) error {
	m := tui.NewScopeModel(a.session, a.stream,
		tui.WithTransport(a.transport, a.streamID),
		tui.WithRefresh(a.cfg.Display.RefreshInterval, a.cfg.Display.TracePoints),
	)
	err := tui.RunScope(ctx, m)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// runHeadless performs the same render passes as the terminal UI, logging
// each adopted spectrum instead of drawing it.
func (a *app) runHeadless(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Display.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, ok := a.session.Tick()
			if !ok {
				continue
			}
			a.logger.Infof("spectrum %d: %d bins from %d samples",
				res.Sequence, len(res.Spectrum), a.session.Samples())
			frame := transport.NewSpectrumFrame(a.streamID(), res, acquisition.SampleRate)
			if err := a.transport.Send(frame); err != nil {
				a.logger.Warnf("publish: %v", err)
			}
		}
	}
}

// close stops everything start launched, in reverse order. Components that
// were never created are skipped.
func (a *app) close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.udpSender != nil {
		_ = a.udpSender.Close()
	}
	if a.stream != nil && a.stream.Streaming() {
		if err := a.stream.Stop(); err != nil {
			a.logger.Errorf("stopping stream: %v", err)
		}
	}
	if a.session != nil {
		a.session.Detach()
	}
	if a.recorder != nil && a.recorder.Recording() {
		if err := a.recorder.StopRecording(); err != nil {
			a.logger.Errorf("stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", a.recPath)
		}
	}
	if a.worker != nil {
		a.worker.Stop()
		stats := a.worker.Stats()
		a.logger.Debugf("worker processed %d requests, %d superseded", stats.Processed, stats.Superseded)
	}
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.logger.Errorf("closing transports: %v", err)
		}
	}
	if a.portaudio {
		if err := acquisition.Terminate(); err != nil {
			a.logger.Errorf("%v", err)
		}
		a.portaudio = false
	}
}
