package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/tablegrid/internal/timer"
)

// ManualScheduler is a timer.Scheduler driven by a virtual clock.
//
// Nothing fires until Advance moves the clock past a timer's deadline, so
// debounce and scroll-coalescing tests run without sleeping. Timers due at
// the same instant fire in scheduling order.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run on
// the goroutine calling Advance, outside the lock.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler at virtual time 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements timer.Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) timer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements timer.Timer.
func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and fires every timer now due.
// Returns the number of callbacks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	s.mu.Unlock()

	fired := 0
	for {
		t := s.nextDue()
		if t == nil {
			return fired
		}
		t.f()
		fired++
	}
}

// Now returns the virtual time elapsed since creation.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of armed timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// nextDue marks and returns the earliest due timer, compacting the list.
func (s *ManualScheduler) nextDue() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live

	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at != s.timers[j].at {
			return s.timers[i].at < s.timers[j].at
		}
		return s.timers[i].seq < s.timers[j].seq
	})

	if len(s.timers) == 0 || s.timers[0].at > s.now {
		return nil
	}
	t := s.timers[0]
	t.fired = true
	return t
}
