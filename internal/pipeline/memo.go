package pipeline

import (
	"sync"

	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/table"
)

// Key identifies the inputs of one ComputeView call: only the state fields
// the pipeline reads, so pin, size and loading changes reuse the cached
// view. DataVersion comes from state.Store; IndexGen changes whenever a
// different search index is in use (0 means none).
type Key struct {
	DataVersion   int64
	FilterValue   string
	SortColumn    string
	SortDirection table.SortDirection
	IndexGen      int
	Options       Options
}

// KeyOf builds the Key for st.
func KeyOf[R any](st table.State[R], dataVersion int64, indexGen int, opts Options) Key {
	return Key{
		DataVersion:   dataVersion,
		FilterValue:   st.FilterValue,
		SortColumn:    st.SortColumn,
		SortDirection: st.SortDirection,
		IndexGen:      indexGen,
		Options:       opts,
	}
}

// Memo caches the last view and recomputes only when its Key changes.
type Memo[R any] struct {
	mu       sync.Mutex
	key      Key
	out      []R
	valid    bool
	computes int
}

// View returns the cached view for k, computing it on a miss.
func (m *Memo[R]) View(k Key, st table.State[R], cols []table.Column[R], idx search.Index[R]) []R {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.key == k {
		return m.out
	}
	m.out = ComputeView(st.Data, st, cols, idx, k.Options)
	m.key = k
	m.valid = true
	m.computes++
	return m.out
}

// Invalidate forces the next View to recompute.
func (m *Memo[R]) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// Computes returns how many times the view was computed.
func (m *Memo[R]) Computes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computes
}
