package session

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// TicksPerCycle is the wrap-around of the tick counter.
const TicksPerCycle = 20

// Ticker drives per-player callbacks at a fixed rate independent of network
// activity. Callbacks run sequentially on the ticker goroutine in
// registration order and must not block.
type Ticker struct {
	interval time.Duration
	tick     atomic.Int64

	mu        sync.Mutex
	next      uint64
	callbacks map[uint64]func(tick int)
}

// NewTicker returns a Ticker firing every interval.
//
// Precondition: interval must be > 0.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		panic("session.NewTicker: interval must be > 0")
	}
	return &Ticker{interval: interval, callbacks: make(map[uint64]func(int))}
}

// Register adds fn and returns a function that removes it. The returned
// function may be called any number of times; only the first has an effect.
func (t *Ticker) Register(fn func(tick int)) (cancel func()) {
	t.mu.Lock()
	id := t.next
	t.next++
	t.callbacks[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.callbacks, id)
		})
	}
}

// Len returns the number of registered callbacks.
func (t *Ticker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.callbacks)
}

// Tick returns the current tick in [0, TicksPerCycle).
func (t *Ticker) Tick() int { return int(t.tick.Load()) }

// Step advances the counter and runs every callback once.
func (t *Ticker) Step() {
	n := (t.tick.Load() + 1) % TicksPerCycle
	t.tick.Store(n)

	t.mu.Lock()
	ids := make([]uint64, 0, len(t.callbacks))
	for id := range t.callbacks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(int), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.callbacks[id])
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(int(n))
	}
}

// Run steps the ticker every interval until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Step()
		}
	}
}
