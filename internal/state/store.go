// Package state implements the observable snapshot container for a table.
//
// A Store holds exactly one fully-formed table.State. Writers never touch
// the live snapshot: Update clones it, applies the change, sanitizes the
// result and swaps it in under the lock, then notifies subscribers with the
// new snapshot. Readers therefore never observe a partial update.
package state

import (
	"sync"

	"github.com/roach88/tablegrid/internal/table"
)

// Listener receives every accepted snapshot.
type Listener[R any] func(snap table.State[R])

// Patch is a partial update. Nil fields are left unchanged.
type Patch[R any] struct {
	Data             *[]R
	SortColumn       *string
	SortDirection    *table.SortDirection
	FilterValue      *string
	VisibleColumns   *[]string
	PinnedColumns    *table.Pinned
	ColumnSizing     map[string]float64 // merged, not replaced
	ColumnResizeMode *table.ResizeMode
	Loading          *bool
	TotalRows        *int64

	// FetchError is applied when SetFetchError is true (nil clears it).
	FetchError    error
	SetFetchError bool
}

// Ptr is a convenience for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Store is the single authoritative state container for one table.
//
// Thread-safety: all methods are safe for concurrent use, but the engine's
// single-writer design means only the owning loop calls Update.
// Listeners run synchronously on the writer after the lock is released.
type Store[R any] struct {
	mu          sync.RWMutex
	snap        table.State[R]
	columns     []table.Column[R]
	version     int64
	dataVersion int64

	listenerMu sync.Mutex
	listeners  []listenerEntry[R]
	nextID     int
}

type listenerEntry[R any] struct {
	id int
	fn Listener[R]
}

// New creates a store holding table.NewState(data, columns, opts...).
func New[R any](data []R, columns []table.Column[R], opts ...table.Option[R]) *Store[R] {
	cols := make([]table.Column[R], len(columns))
	copy(cols, columns)

	s := &Store[R]{
		columns:     cols,
		version:     1,
		dataVersion: 1,
	}
	s.snap = sanitize(table.NewState(data, cols, opts...))
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store[R]) Snapshot() table.State[R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Versioned returns the current state together with its version and data
// version, read atomically.
func (s *Store[R]) Versioned() (snap table.State[R], version, dataVersion int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), s.version, s.dataVersion
}

// Columns returns the column definitions in definition order.
func (s *Store[R]) Columns() []table.Column[R] {
	cols := make([]table.Column[R], len(s.columns))
	copy(cols, s.columns)
	return cols
}

// Version increments on every accepted mutation.
func (s *Store[R]) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// DataVersion increments only when the row collection is replaced.
func (s *Store[R]) DataVersion() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataVersion
}

// Update applies a patch and returns the new snapshot.
func (s *Store[R]) Update(p Patch[R]) table.State[R] {
	return s.commit(func(st table.State[R]) (table.State[R], bool) {
		return apply(st, p), p.Data != nil
	})
}

// UpdateFunc applies fn to a private copy of the current snapshot. fn may
// mutate and return its argument freely.
func (s *Store[R]) UpdateFunc(fn func(table.State[R]) table.State[R]) table.State[R] {
	return s.commit(func(st table.State[R]) (table.State[R], bool) {
		before := st.Data
		next := fn(st)
		return next, !sameSlice(before, next.Data)
	})
}

// Reset recomputes defaults from the current data and columns, discarding
// sort, filter, pin, visibility and size customizations.
func (s *Store[R]) Reset() table.State[R] {
	return s.commit(func(st table.State[R]) (table.State[R], bool) {
		return table.NewState(st.Data, s.columns), false
	})
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *Store[R]) Subscribe(fn Listener[R]) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry[R]{id: id, fn: fn})

	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store[R]) commit(fn func(table.State[R]) (table.State[R], bool)) table.State[R] {
	s.mu.Lock()
	next, dataChanged := fn(s.snap.Clone())
	next = sanitize(next)
	s.snap = next
	s.version++
	if dataChanged {
		s.dataVersion++
	}
	out := s.snap.Clone()
	s.mu.Unlock()

	s.notify(out)
	return out
}

func (s *Store[R]) notify(snap table.State[R]) {
	s.listenerMu.Lock()
	ls := make([]listenerEntry[R], len(s.listeners))
	copy(ls, s.listeners)
	s.listenerMu.Unlock()

	for _, l := range ls {
		l.fn(snap.Clone())
	}
}

func apply[R any](st table.State[R], p Patch[R]) table.State[R] {
	if p.Data != nil {
		st.Data = append([]R(nil), (*p.Data)...)
	}
	if p.SortColumn != nil {
		st.SortColumn = *p.SortColumn
	}
	if p.SortDirection != nil && p.SortDirection.Valid() {
		st.SortDirection = *p.SortDirection
	}
	if p.FilterValue != nil {
		st.FilterValue = *p.FilterValue
	}
	if p.VisibleColumns != nil {
		st.VisibleColumns = append([]string(nil), (*p.VisibleColumns)...)
	}
	if p.PinnedColumns != nil {
		st.PinnedColumns = p.PinnedColumns.Clone()
	}
	for k, v := range p.ColumnSizing {
		st.ColumnSizing[k] = v
	}
	if p.ColumnResizeMode != nil && p.ColumnResizeMode.Valid() {
		st.ColumnResizeMode = *p.ColumnResizeMode
	}
	if p.Loading != nil {
		st.Loading = *p.Loading
	}
	if p.TotalRows != nil {
		st.TotalRows = *p.TotalRows
	}
	if p.SetFetchError {
		st.FetchError = p.FetchError
	}
	return st
}

func sameSlice[R any](a, b []R) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
