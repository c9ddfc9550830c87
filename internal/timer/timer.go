// Package timer provides single-slot debounce and coalescing primitives.
//
// Every primitive here owns at most one outstanding callback per concern:
// scheduling again cancels whatever is pending. Callbacks run on whatever
// goroutine the Scheduler uses; the engine posts them back onto its own
// loop rather than mutating state from the timer goroutine.
package timer

import (
	"sync"
	"time"
)

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the callback. Returns false if it already ran or was stopped.
	Stop() bool
}

// Scheduler creates timers. RealScheduler wraps time.AfterFunc;
// testutil.ManualScheduler fires on demand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer heap.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer delays a callback until input has paused for Delay.
//
// Thread-safety: Debouncer is safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	sched   Scheduler
	delay   time.Duration
	pending Timer
	gen     uint64
}

// NewDebouncer creates a debouncer. A nil scheduler means RealScheduler.
func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending callback and arms f. A zero delay runs f
// synchronously.
func (d *Debouncer) Schedule(f func()) {
	d.mu.Lock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
	gen := d.gen

	if d.delay <= 0 {
		d.mu.Unlock()
		f()
		return
	}

	d.pending = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A Stop racing with the fire can lose; the generation check drops
		// the superseded callback.
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		f()
	})
	d.mu.Unlock()
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.gen++
}

// Pending reports whether a callback is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Coalescer collapses a burst of values into one delivery of the latest
// value after Delay (one "frame"). Unlike Debouncer, later values do not
// push the delivery back.
type Coalescer[T any] struct {
	mu      sync.Mutex
	sched   Scheduler
	delay   time.Duration
	latest  T
	pending Timer
	deliver func(T)
}

// NewCoalescer creates a coalescer delivering to fn.
func NewCoalescer[T any](sched Scheduler, delay time.Duration, fn func(T)) *Coalescer[T] {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Coalescer[T]{sched: sched, delay: delay, deliver: fn}
}

// Push records v and arms delivery if none is pending. A zero delay
// delivers synchronously.
func (c *Coalescer[T]) Push(v T) {
	c.mu.Lock()
	c.latest = v
	if c.delay <= 0 {
		c.mu.Unlock()
		c.deliver(v)
		return
	}
	if c.pending != nil {
		c.mu.Unlock()
		return
	}
	c.pending = c.sched.AfterFunc(c.delay, func() {
		c.mu.Lock()
		v := c.latest
		c.pending = nil
		c.mu.Unlock()
		c.deliver(v)
	})
	c.mu.Unlock()
}

// Cancel drops a pending delivery.
func (c *Coalescer[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
