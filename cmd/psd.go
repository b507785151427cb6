// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/config"
	"scope/internal/transport"
)

// WritePSD estimates the transfer-function spectrum of the two-channel WAV
// file at path and writes it to w as CSV (frequency,dB per line) or as one
// JSON spectrum frame.
func WritePSD(w io.Writer, path, format string, cfg *config.Config) error {
	r, err := acquisition.ParseVoltageRange(cfg.Acquisition.Range)
	if err != nil {
		return err
	}
	win, err := analysis.ParseWindow(cfg.Analysis.Window)
	if err != nil {
		return err
	}

	rec, err := acquisition.ReadWAV(path, r)
	if err != nil {
		return err
	}

	segLen := cfg.Analysis.SegmentLength
	spectrum := analysis.Welch(rec.Batch.A, rec.Batch.B, segLen, win.Func())
	if len(spectrum) == 0 {
		return fmt.Errorf("%s: %d samples are not enough for segment length %d",
			path, rec.Batch.Len(), segLen)
	}

	res := analysis.Result{
		Spectrum:      spectrum,
		SegmentLength: min(segLen, rec.Batch.Len()),
	}
	frame := transport.NewSpectrumFrame(filepath.Base(path), res, rec.SampleRate)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		return enc.Encode(frame)
	default:
		if _, err := fmt.Fprintln(w, "frequency_hz,db"); err != nil {
			return err
		}
		for i, f := range frame.Freqs {
			if _, err := fmt.Fprintf(w, "%g,%g\n", f, spectrum[i]); err != nil {
				return err
			}
		}
		return nil
	}
}
