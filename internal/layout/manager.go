package layout

import (
	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
)

// Manager routes pin and visibility mutations through a store, so the
// one-side pin invariant holds for every accepted snapshot.
type Manager[R any] struct {
	store *state.Store[R]
}

// NewManager binds a Manager to store.
func NewManager[R any](store *state.Store[R]) *Manager[R] {
	return &Manager[R]{store: store}
}

func (m *Manager[R]) known(id string) bool {
	_, ok := table.FindColumn(m.store.Columns(), id)
	return ok
}

// ToggleVisibility hides or re-shows id. Unknown ids are ignored and false
// is returned.
func (m *Manager[R]) ToggleVisibility(id string) bool {
	if !m.known(id) {
		return false
	}
	m.store.UpdateFunc(func(st table.State[R]) table.State[R] {
		st.VisibleColumns = ToggleVisibility(st.VisibleColumns, id)
		return st
	})
	return true
}

// TogglePin moves id to side, or unpins it for PinNone. Unknown ids and
// sides are ignored and false is returned.
func (m *Manager[R]) TogglePin(id string, side table.PinSide) bool {
	if !m.known(id) {
		return false
	}
	switch side {
	case table.PinNone, table.PinLeft, table.PinRight:
	default:
		return false
	}
	m.store.UpdateFunc(func(st table.State[R]) table.State[R] {
		st.PinnedColumns = TogglePin(st.PinnedColumns, id, side)
		return st
	})
	return true
}

// Columns returns the visible columns of the current snapshot in render
// order.
func (m *Manager[R]) Columns() []table.Column[R] {
	return Ordered(m.store.Columns(), m.store.Snapshot())
}
