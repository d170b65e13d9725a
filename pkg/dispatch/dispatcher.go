// Package dispatch marshals work from arbitrary goroutines onto the single
// logical thread that owns a set of property stores.
package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("dispatch: dispatcher closed")

// Dispatcher is a FIFO queue of callbacks drained by one goroutine. Post is
// safe for concurrent use; Run and Drain must only be called from the owner
// thread.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	onPanic func(any)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPanicHandler recovers panics raised by callbacks and passes them to fn.
// Without a handler panics propagate to the caller of Run or Drain.
func WithPanicHandler(fn func(any)) Option {
	return func(d *Dispatcher) {
		d.onPanic = fn
	}
}

// New returns an open dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Post schedules callback. It reports false when the callback is nil or the
// dispatcher is closed.
func (d *Dispatcher) Post(callback func()) bool {
	if callback == nil {
		return false
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, callback)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Drain runs every queued callback, including ones posted while draining,
// and returns how many ran.
func (d *Dispatcher) Drain() int {
	ran := 0
	for {
		batch := d.take()
		if len(batch) == 0 {
			return ran
		}
		for _, callback := range batch {
			d.invoke(callback)
			ran++
		}
	}
}

// Run drains the queue until ctx is done or the dispatcher is closed. Work
// posted before Close still runs.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			d.Drain()
			return ErrClosed
		case <-d.wake:
		}
	}
}

// Close stops accepting work and makes Run return once the queue is empty.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) take() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.queue
	d.queue = nil
	return batch
}

func (d *Dispatcher) invoke(callback func()) {
	if d.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				d.onPanic(r)
			}
		}()
	}
	callback()
}
