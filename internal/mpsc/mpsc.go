// SPDX-License-Identifier: MIT
/*
Package mpsc implements an unbounded, closable multi-producer single-consumer
channel used to move sample batches and analysis requests between goroutines.

Ownership:
  - The Receiver is the single strong owner of the queue.
  - Every Sender holds a weak pointer to the queue. Once the Receiver is
    closed, or becomes unreachable and is collected, Send reports false
    instead of reviving the channel.

Blocking:
  - Send never blocks on capacity; the queue is unbounded.
  - Recv and Flush park the calling goroutine until data arrives or the
    channel is closed and drained. TryRecv and FlushNoBlock never park.

Close keeps already queued items retrievable for the rest of the
Receiver's life.
*/
package mpsc

import (
	"sync"
	"weak"
)

type state[T any] struct {
	mu     sync.Mutex
	ready  sync.Cond // signalled on every enqueue, broadcast on close
	queue  []T
	closed bool
}

// pop removes the head of the queue. The caller must hold mu and
// guarantee the queue is non-empty.
func (s *state[T]) pop() T {
	var zero T
	item := s.queue[0]
	s.queue[0] = zero // release the reference for the collector
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	return item
}

// drain hands the whole queue to the caller. The caller must hold mu.
func (s *state[T]) drain() []T {
	items := s.queue
	s.queue = nil
	return items
}

// Sender is a producer handle. Senders are cheap to copy via Clone and safe
// for concurrent use.
type Sender[T any] struct {
	state weak.Pointer[state[T]]
}

// Receiver is the consumer end. It must only be used from one goroutine at
// a time.
type Receiver[T any] struct {
	state *state[T]
}

// Make creates an open, empty channel and returns its first sender and its
// only receiver.
func Make[T any]() (*Sender[T], *Receiver[T]) {
	s := &state[T]{}
	s.ready.L = &s.mu
	return &Sender[T]{state: weak.Make(s)}, &Receiver[T]{state: s}
}

// Send appends item to the queue and wakes a parked receiver. It returns
// false, without enqueueing, once the receiver has been closed or dropped.
func (s *Sender[T]) Send(item T) bool {
	st := s.state.Value()
	if st == nil {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return false
	}
	st.queue = append(st.queue, item)
	st.ready.Signal()
	return true
}

// Clone returns another sender feeding the same queue.
func (s *Sender[T]) Clone() *Sender[T] {
	return &Sender[T]{state: s.state}
}

// Sender derives a new sender from the receiver.
func (r *Receiver[T]) Sender() *Sender[T] {
	return &Sender[T]{state: weak.Make(r.state)}
}

// Recv parks until an item is available and returns it. The boolean is
// false only when the channel is closed and drained, i.e. it can never
// produce another item.
func (r *Receiver[T]) Recv() (T, bool) {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	for len(st.queue) == 0 {
		if st.closed {
			var zero T
			return zero, false
		}
		st.ready.Wait()
	}
	return st.pop(), true
}

// TryRecv returns the head of the queue if there is one. It never parks.
func (r *Receiver[T]) TryRecv() (T, bool) {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.queue) == 0 {
		var zero T
		return zero, false
	}
	return st.pop(), true
}

// Flush parks until at least one item is queued and then returns every
// queued item in FIFO order. It returns nil only when the channel is closed
// and drained.
func (r *Receiver[T]) Flush() []T {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	for len(st.queue) == 0 {
		if st.closed {
			return nil
		}
		st.ready.Wait()
	}
	return st.drain()
}

// FlushNoBlock returns whatever is queued right now, possibly nothing.
func (r *Receiver[T]) FlushNoBlock() []T {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.drain()
}

// Close moves the channel to its terminal state. Pending and future sends
// fail; items already queued can still be received. Parked Recv and Flush
// calls return once the queue is empty. Close is idempotent.
func (r *Receiver[T]) Close() {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		return
	}
	st.closed = true
	st.ready.Broadcast()
}

// Closed reports whether Close has been called.
func (r *Receiver[T]) Closed() bool {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.closed
}

// Len returns the number of queued items.
func (r *Receiver[T]) Len() int {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.queue)
}
