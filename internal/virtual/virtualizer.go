package virtual

import (
	"math"
	"sync"
	"time"

	"github.com/roach88/tablegrid/internal/timer"
)

// Item is one materialized row.
type Item struct {
	Index  int     `json:"index"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Options configures a Virtualizer.
type Options struct {
	Model           Model
	Overscan        int
	ContainerHeight float64
	Disabled        bool

	// ScrollingDelay coalesces scroll events into one recompute per delay.
	// Zero recomputes on every event.
	ScrollingDelay time.Duration

	// Scheduler drives the scroll coalescer. Nil uses real timers.
	Scheduler timer.Scheduler

	// Dispatch runs a coalesced recompute. The engine passes a func that
	// enqueues onto its event loop; nil runs inline on the timer goroutine.
	Dispatch func(func())

	// OnChange is called after every recompute that changed the window.
	OnChange func(Window)
}

// Virtualizer holds the scroll position and the last computed window.
//
// Thread-safety: all methods are safe for concurrent use. OnChange runs
// outside the lock.
type Virtualizer struct {
	mu       sync.Mutex
	opts     Options
	count    int
	offset   float64
	prefix   []float64
	window   Window
	measured bool

	scroll *timer.Coalescer[float64]
}

// New creates a Virtualizer for count rows.
func New(count int, opts Options) *Virtualizer {
	v := &Virtualizer{opts: opts, count: count}
	v.scroll = timer.NewCoalescer(opts.Scheduler, opts.ScrollingDelay, func(offset float64) {
		apply := func() { v.SetScrollOffset(offset) }
		if v.opts.Dispatch != nil {
			v.opts.Dispatch(apply)
			return
		}
		apply()
	})
	v.mu.Lock()
	v.rebuildLocked()
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
	return v
}

// Window returns the last computed window.
func (v *Virtualizer) Window() Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.window
}

// Measured reports whether a window has been computed for a non-zero
// container height.
func (v *Virtualizer) Measured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.measured
}

// Scroll records a scroll event. With a ScrollingDelay the recompute runs
// once per frame with the latest offset.
func (v *Virtualizer) Scroll(offset float64) {
	v.scroll.Push(offset)
}

// SetScrollOffset applies offset and recomputes immediately.
func (v *Virtualizer) SetScrollOffset(offset float64) {
	v.mu.Lock()
	if offset < 0 {
		offset = 0
	}
	v.offset = offset
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
}

// ScrollTo jumps to the top offset of row index and returns it. Out of
// range indexes are clamped.
func (v *Virtualizer) ScrollTo(index int) float64 {
	v.scroll.Cancel()

	v.mu.Lock()
	if index >= v.count {
		index = v.count - 1
	}
	if index < 0 {
		index = 0
	}
	v.offset = v.offsetLocked(index)
	offset := v.offset
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
	return offset
}

// SetContainerHeight applies a new measurement.
func (v *Virtualizer) SetContainerHeight(h float64) {
	v.mu.Lock()
	v.opts.ContainerHeight = h
	v.clampOffsetLocked()
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
}

// SetCount changes the item count, for example after the view was filtered.
func (v *Virtualizer) SetCount(n int) {
	v.mu.Lock()
	if n < 0 {
		n = 0
	}
	if n == v.count {
		v.mu.Unlock()
		return
	}
	v.count = n
	v.rebuildLocked()
	v.clampOffsetLocked()
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
}

// SetModel replaces the height model.
func (v *Virtualizer) SetModel(m Model) {
	v.mu.Lock()
	v.opts.Model = m
	v.rebuildLocked()
	changed, w := v.recomputeLocked()
	v.mu.Unlock()
	v.emit(changed, w)
}

// Offset returns the top offset of row i.
func (v *Virtualizer) Offset(i int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offsetLocked(i)
}

// TotalExtent is the logical height of all rows.
func (v *Virtualizer) TotalExtent() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.prefix != nil {
		return v.prefix[v.count]
	}
	return float64(v.count) * v.opts.Model.RowHeight
}

// Items returns the materialized rows of the current window.
func (v *Virtualizer) Items() []Item {
	v.mu.Lock()
	defer v.mu.Unlock()

	w := v.window
	if w.VisibleCount == 0 {
		return nil
	}
	items := make([]Item, 0, w.VisibleCount)
	for i := w.Start; i <= w.End && i < v.count; i++ {
		items = append(items, Item{
			Index:  i,
			Top:    v.offsetLocked(i),
			Height: v.opts.Model.at(i),
		})
	}
	return items
}

// Close cancels a pending coalesced scroll.
func (v *Virtualizer) Close() {
	v.scroll.Cancel()
}

func (v *Virtualizer) offsetLocked(i int) float64 {
	if i <= 0 {
		return 0
	}
	if v.prefix != nil {
		if i > v.count {
			i = v.count
		}
		return v.prefix[i]
	}
	return float64(i) * v.opts.Model.RowHeight
}

// clampOffsetLocked pulls the offset back so the last page stays full
// after the content shrank below it. Unmeasured containers are left alone
// and clamped on the first measurement.
func (v *Virtualizer) clampOffsetLocked() {
	if v.opts.ContainerHeight <= 0 {
		return
	}
	total := float64(v.count) * v.opts.Model.RowHeight
	if v.prefix != nil {
		total = v.prefix[v.count]
	}
	if limit := math.Max(total-v.opts.ContainerHeight, 0); v.offset > limit {
		v.offset = limit
	}
}

func (v *Virtualizer) rebuildLocked() {
	if v.opts.Model.Variable() {
		v.prefix = Prefix(v.count, v.opts.Model)
		return
	}
	v.prefix = nil
}

// recomputeLocked refreshes the window. An unmeasured container keeps the
// previous window, except in disabled mode where height is irrelevant.
func (v *Virtualizer) recomputeLocked() (bool, Window) {
	if v.opts.ContainerHeight <= 0 && !v.opts.Disabled {
		return false, v.window
	}
	w := computeWindow(Params{
		Count:           v.count,
		Model:           v.opts.Model,
		Overscan:        v.opts.Overscan,
		ContainerHeight: v.opts.ContainerHeight,
		ScrollOffset:    v.offset,
		Disabled:        v.opts.Disabled,
	}, v.prefix)
	changed := !v.measured || w != v.window
	v.window = w
	v.measured = true
	return changed, w
}

func (v *Virtualizer) emit(changed bool, w Window) {
	if changed && v.opts.OnChange != nil {
		v.opts.OnChange(w)
	}
}
