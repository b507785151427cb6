// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"sync/atomic"

	"scope/internal/log"
	"scope/internal/mpsc"
)

// ErrWorkerStarted is returned by Start when the worker is already running
// or has been stopped.
var ErrWorkerStarted = errors.New("analysis worker already started")

// Request asks the worker for a spectrum of two equal-length channels.
// The slices are owned by the request and must not be modified after it
// is sent.
type Request struct {
	A, B          []float64
	SegmentLength int
	Window        WindowFunc

	// Sequence is an opaque tag copied into the Result so a consumer can
	// match results to the view that produced them.
	Sequence uint64
}

// Result is the outcome of one Request. Spectrum is empty when the request
// carried too little data. SegmentLength is the transform length actually
// used, which is shorter than requested when the input was, so the spectrum
// always has SegmentLength/2+1 bins when it is not empty.
type Result struct {
	Spectrum      []float64
	SegmentLength int
	Sequence      uint64
}

// Estimator computes a spectrum for a request. Welch is the default.
type Estimator func(a, b []float64, segmentLength int, fn WindowFunc) []float64

// WorkerStats counts the requests a worker has handled.
type WorkerStats struct {
	Processed  uint64 // requests that produced a Result
	Superseded uint64 // requests dropped because a newer one was queued
}

// Worker runs spectrum estimation off the caller's goroutine. Requests that
// pile up while it is busy are coalesced: only the newest is computed.
type Worker struct {
	requests   *mpsc.Receiver[Request]
	requestsTx *mpsc.Sender[Request]
	results    *mpsc.Receiver[Result]
	resultsTx  *mpsc.Sender[Result]
	estimate   Estimator
	logger     *log.Logger
	processed  atomic.Uint64
	superseded atomic.Uint64
	started    atomic.Bool
	done       chan struct{}
	stopOnce   sync.Once
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithEstimator replaces the Welch estimator.
func WithEstimator(e Estimator) WorkerOption {
	return func(w *Worker) {
		if e != nil {
			w.estimate = e
		}
	}
}

// NewWorker creates a stopped worker with fresh request and result channels.
func NewWorker(opts ...WorkerOption) *Worker {
	reqTx, reqRx := mpsc.Make[Request]()
	resTx, resRx := mpsc.Make[Result]()

	w := &Worker{
		requests:   reqRx,
		requestsTx: reqTx,
		results:    resRx,
		resultsTx:  resTx,
		estimate:   Welch,
		logger:     log.Named("analysis"),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Requests returns a sender for submitting requests. Each call returns a new
// handle on the same queue.
func (w *Worker) Requests() *mpsc.Sender[Request] {
	return w.requestsTx.Clone()
}

// Results returns the receiver results are published on.
func (w *Worker) Results() *mpsc.Receiver[Result] {
	return w.results
}

// Start launches the worker goroutine. It may be called only once.
func (w *Worker) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrWorkerStarted
	}
	go w.run()
	return nil
}

// Stop closes the request channel and waits for the worker goroutine to
// finish the computation in flight. Requests still queued are discarded.
// Stop is idempotent and safe to call on a worker that never started.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.requests.Close()
		if w.started.CompareAndSwap(false, true) {
			close(w.done)
			return
		}
		<-w.done
	})
}

// Stats returns the current request counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Processed:  w.processed.Load(),
		Superseded: w.superseded.Load(),
	}
}

func (w *Worker) run() {
	defer close(w.done)
	w.logger.Debugf("worker started")

	for {
		batch := w.requests.Flush()
		if batch == nil {
			w.logger.Debugf("worker stopped (processed=%d superseded=%d)",
				w.processed.Load(), w.superseded.Load())
			return
		}
		if w.requests.Closed() {
			return
		}

		if dropped := len(batch) - 1; dropped > 0 {
			w.superseded.Add(uint64(dropped))
		}
		req := batch[len(batch)-1]

		spectrum := w.estimate(req.A, req.B, req.SegmentLength, req.Window)
		if len(spectrum) == 0 {
			w.logger.Debugf("not enough data for segment length %d (%d samples)",
				req.SegmentLength, len(req.A))
		}
		w.processed.Add(1)

		if !w.resultsTx.Send(Result{
			Spectrum:      spectrum,
			SegmentLength: min(req.SegmentLength, len(req.A)),
			Sequence:      req.Sequence,
		}) {
			return
		}
	}
}
