// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"scope/internal/analysis"
)

func TestNewSpectrumFrame(t *testing.T) {
	res := analysis.Result{
		Spectrum:      []float64{1, math.Inf(1), math.Inf(-1), math.NaN(), -4},
		SegmentLength: 8,
		Sequence:      12,
	}
	f := NewSpectrumFrame("abc", res, 50000)

	if f.Stream != "abc" || f.Sequence != 12 || f.Bins != 5 {
		t.Errorf("frame header = %+v", f)
	}
	wantDB := []float64{1, CeilDB, FloorDB, FloorDB, -4}
	for i, v := range f.DB {
		if v != wantDB[i] {
			t.Errorf("db[%d] = %g, want %g", i, v, wantDB[i])
		}
	}
	if len(f.Freqs) != 5 || f.Freqs[4] != 25000 {
		t.Errorf("freqs = %v", f.Freqs)
	}

	if _, err := json.Marshal(f); err != nil {
		t.Errorf("frame does not marshal: %v", err)
	}
}

func TestNewSpectrumFrameEmpty(t *testing.T) {
	f := NewSpectrumFrame("abc", analysis.Result{}, 50000)
	if f.Bins != 0 || len(f.DB) != 0 || f.Freqs != nil {
		t.Errorf("empty frame = %+v", f)
	}
}

type recordingTransport struct {
	sent   []any
	err    error
	closed bool
}

func (r *recordingTransport) Send(data any) error {
	r.sent = append(r.sent, data)
	return r.err
}

func (r *recordingTransport) Close() error {
	r.closed = true
	return r.err
}

func TestMulti(t *testing.T) {
	ok := &recordingTransport{}
	failing := &recordingTransport{err: errors.New("boom")}
	m := Multi{ok, failing, NewLoggingTransport()}

	err := m.Send(SpectrumFrame{Bins: 3})
	if err == nil || err.Error() != "boom" {
		t.Errorf("Send error = %v, want boom", err)
	}
	if len(ok.sent) != 1 || len(failing.sent) != 1 {
		t.Error("frame not delivered to every transport")
	}

	if err := m.Close(); err == nil {
		t.Error("Close swallowed the failing transport's error")
	}
	if !ok.closed || !failing.closed {
		t.Error("not every transport was closed")
	}
}
