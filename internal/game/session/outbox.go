// Package session provides the broadcast coordinator: the registry of live
// players, each player's outbound queue gated on a one-shot ready signal,
// and the fixed-rate tick driver.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

var (
	// ErrOutboxClosed is returned when pushing to a closed outbox.
	ErrOutboxClosed = errors.New("outbox closed")
	// ErrOutboxFull is returned when a peer cannot keep up. The outbox is
	// aborted before the error is returned.
	ErrOutboxFull = errors.New("outbox full")
)

// Outbox queues encoded frames for one connection and writes them in order
// from a single goroutine, so a slow peer never blocks the goroutine that
// pushes to it.
//
// Frames pushed with PushReady before MarkReady are parked and delivered, in
// order, when MarkReady is called. Frames pushed with Push bypass the gate;
// the owning session uses Push for its own handshake and Play entry traffic.
type Outbox struct {
	frames chan []byte
	done   chan struct{}
	ready  chan struct{}

	mu           sync.Mutex
	closed       bool
	isReady      bool
	pending      [][]byte
	pendingLimit int

	aborted   atomic.Bool
	closeOnce sync.Once
}

// NewOutbox creates an Outbox holding up to size queued frames and
// pendingLimit parked frames.
//
// Postcondition: Non-positive sizes fall back to 256 and 1024.
func NewOutbox(size, pendingLimit int) *Outbox {
	if size <= 0 {
		size = 256
	}
	if pendingLimit <= 0 {
		pendingLimit = 1024
	}
	return &Outbox{
		frames:       make(chan []byte, size),
		done:         make(chan struct{}),
		ready:        make(chan struct{}),
		pendingLimit: pendingLimit,
	}
}

// Push enqueues frame for immediate delivery.
//
// Postcondition: Returns ErrOutboxClosed after Close, or ErrOutboxFull (and
// aborts the outbox) if the queue is full.
func (o *Outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enqueueLocked(frame)
}

func (o *Outbox) enqueueLocked(frame []byte) error {
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.frames <- frame:
		return nil
	default:
		o.abortLocked()
		return ErrOutboxFull
	}
}

// PushReady enqueues a frame originating from another session. Until the
// outbox is ready the frame is parked.
func (o *Outbox) PushReady(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	if o.isReady {
		return o.enqueueLocked(frame)
	}
	if len(o.pending) >= o.pendingLimit {
		o.abortLocked()
		return fmt.Errorf("%d parked frames: %w", len(o.pending), ErrOutboxFull)
	}
	o.pending = append(o.pending, frame)
	return nil
}

// PushIfReady enqueues a frame originating from another session when the
// outbox is ready and discards it otherwise.
//
// Postcondition: A discarded frame returns nil and leaves Pending unchanged.
func (o *Outbox) PushIfReady(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	if !o.isReady {
		return nil
	}
	return o.enqueueLocked(frame)
}

// MarkReady resolves the ready signal after queueing every parked frame.
// Later calls are no-ops.
func (o *Outbox) MarkReady() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isReady {
		return nil
	}
	if o.closed {
		return ErrOutboxClosed
	}
	for i, f := range o.pending {
		if err := o.enqueueLocked(f); err != nil {
			return fmt.Errorf("flushing parked frame %d: %w", i, err)
		}
	}
	o.pending = nil
	o.isReady = true
	close(o.ready)
	return nil
}

// Ready is closed once MarkReady succeeds.
func (o *Outbox) Ready() <-chan struct{} { return o.ready }

// IsReady reports whether MarkReady has succeeded.
func (o *Outbox) IsReady() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isReady
}

// Pending returns the number of parked frames.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Close stops accepting frames. Frames already queued are still written by
// Run; parked frames are discarded. Close is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Outbox) closeLocked() {
	o.closeOnce.Do(func() {
		o.closed = true
		o.pending = nil
		close(o.done)
	})
}

func (o *Outbox) abortLocked() {
	o.aborted.Store(true)
	o.closeLocked()
}

// Aborted reports whether the outbox was closed because the peer fell
// behind.
func (o *Outbox) Aborted() bool { return o.aborted.Load() }

// Done is closed when the outbox is closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Run writes queued frames to w until the outbox is closed or ctx ends.
// After a graceful Close the queue is drained first; after an abort it is
// not.
//
// Postcondition: Returns nil after a graceful close, ErrOutboxFull after an
// abort, or the first write error.
func (o *Outbox) Run(ctx context.Context, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-o.frames:
			if _, err := w.Write(f); err != nil {
				o.Close()
				return fmt.Errorf("writing frame: %w", err)
			}
		case <-o.done:
			if o.aborted.Load() {
				return ErrOutboxFull
			}
			return o.drain(w)
		}
	}
}

func (o *Outbox) drain(w io.Writer) error {
	for {
		select {
		case f := <-o.frames:
			if _, err := w.Write(f); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		default:
			return nil
		}
	}
}
