package engine

import (
	"github.com/roach88/tablegrid/internal/layout"
	"github.com/roach88/tablegrid/internal/pipeline"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/resize"
	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/virtual"
)

// State returns the current snapshot.
func (t *Table[R]) State() table.State[R] {
	return t.store.Snapshot()
}

// Version increments on every accepted mutation.
func (t *Table[R]) Version() int64 {
	return t.store.Version()
}

// FilterTerm returns the raw, undebounced filter term.
func (t *Table[R]) FilterTerm() string {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	return t.term
}

// Rows returns the pipeline output for the current snapshot: filtered and
// sorted locally, or the server page as-is when server paging is on.
func (t *Table[R]) Rows() []R {
	snap, _, dataVersion := t.store.Versioned()

	var idx search.Index[R]
	gen := 0
	if t.index != nil {
		idx = t.index.Get(dataVersion, snap.Data, t.fields, t.cfg.threshold)
		gen = t.index.Builds()
	}

	key := pipeline.KeyOf(snap, dataVersion, gen, pipeline.Options{
		Fuzzy:      t.cfg.fuzzy,
		ServerSide: t.adapter.Enabled(),
		Locale:     t.cfg.locale,
	})
	return t.memo.View(key, snap, t.store.Columns(), idx)
}

// Window returns the materialized row range.
func (t *Table[R]) Window() virtual.Window {
	return t.vz.Window()
}

// Items returns the materialized rows' indexes, top offsets and heights.
func (t *Table[R]) Items() []virtual.Item {
	return t.vz.Items()
}

// VisibleRows returns the rows of the current window.
func (t *Table[R]) VisibleRows() []R {
	rows := t.Rows()
	w := t.vz.Window()
	if w.VisibleCount == 0 || len(rows) == 0 {
		return nil
	}
	end := min(w.End+1, len(rows))
	if w.Start >= end {
		return nil
	}
	return rows[w.Start:end]
}

// TotalExtent is the logical height of all rows.
func (t *Table[R]) TotalExtent() float64 {
	return t.vz.TotalExtent()
}

// Columns returns the visible columns in render order: left-pinned,
// unpinned in definition order, right-pinned.
func (t *Table[R]) Columns() []table.Column[R] {
	return t.layout.Columns()
}

// ColumnWidth returns the effective width of columnID, or 0 when unknown.
func (t *Table[R]) ColumnWidth(columnID string) float64 {
	col, ok := table.FindColumn(t.store.Columns(), columnID)
	if !ok {
		return 0
	}
	return table.ColumnWidth(t.store.Snapshot().ColumnSizing, col)
}

// LeftOffset is the sticky left offset of a left-pinned column.
func (t *Table[R]) LeftOffset(columnID string) float64 {
	snap := t.store.Snapshot()
	return layout.LeftOffset(layout.Ordered(t.store.Columns(), snap), snap, columnID)
}

// RightOffset is the sticky right offset of a right-pinned column.
func (t *Table[R]) RightOffset(columnID string) float64 {
	snap := t.store.Snapshot()
	return layout.RightOffset(layout.Ordered(t.store.Columns(), snap), snap, columnID)
}

// HeaderGroups returns the header group row for the rendered columns.
func (t *Table[R]) HeaderGroups() []layout.HeaderGroup {
	snap := t.store.Snapshot()
	return layout.HeaderGroups(layout.Ordered(t.store.Columns(), snap), snap)
}

// TotalWidth sums the rendered column widths.
func (t *Table[R]) TotalWidth() float64 {
	snap := t.store.Snapshot()
	return layout.TotalWidth(layout.Ordered(t.store.Columns(), snap), snap)
}

// Resizing returns the active resize session.
func (t *Table[R]) Resizing() (resize.Session, bool) {
	t.readMu.Lock()
	defer t.readMu.Unlock()
	if t.session == nil {
		return resize.Session{}, false
	}
	return *t.session, true
}

// ServerSide reports whether a remote source orders and pages the rows.
func (t *Table[R]) ServerSide() bool {
	return t.adapter.Enabled()
}

// Page returns the current page and page size.
func (t *Table[R]) Page() (page, pageSize int) {
	return t.adapter.Page()
}

// TotalPages is derived from State.TotalRows and the page size.
func (t *Table[R]) TotalPages() int {
	_, size := t.adapter.Page()
	return remote.Page[R]{TotalRows: t.store.Snapshot().TotalRows, PageSize: size}.TotalPages()
}

// FetchError returns the last fetch failure as a FETCH_FAILED TableError,
// or nil.
func (t *Table[R]) FetchError() error {
	err := t.store.Snapshot().FetchError
	if err == nil {
		return nil
	}
	return &TableError{Code: ErrCodeFetchFailed, Message: "remote fetch failed", Err: err}
}

// CheckInvariants verifies the current snapshot and window: every pin on
// at most one side, known ids only, committed widths at or above the
// floor, and a window within the view.
func (t *Table[R]) CheckInvariants() error {
	snap := t.store.Snapshot()
	known := make(map[string]bool)
	for _, id := range table.ColumnIDs(t.store.Columns()) {
		known[id] = true
	}

	left := make(map[string]bool, len(snap.PinnedColumns.Left))
	for _, id := range snap.PinnedColumns.Left {
		if left[id] {
			return invariantError(id, "pinned left twice")
		}
		left[id] = true
	}
	right := make(map[string]bool, len(snap.PinnedColumns.Right))
	for _, id := range snap.PinnedColumns.Right {
		if left[id] {
			return invariantError(id, "pinned on both sides")
		}
		if right[id] {
			return invariantError(id, "pinned right twice")
		}
		right[id] = true
	}

	for _, id := range snap.VisibleColumns {
		if !known[id] {
			return invariantError(id, "visible column is not defined")
		}
	}
	for id, w := range snap.ColumnSizing {
		if w < table.MinColumnWidth {
			return invariantError(id, "width %g below minimum %g", w, float64(table.MinColumnWidth))
		}
	}

	n := len(t.Rows())
	w := t.vz.Window()
	if w.VisibleCount > 0 && (w.Start < 0 || w.End >= n || w.Start > w.End) {
		return invariantError("", "window [%d, %d] outside %d rows", w.Start, w.End, n)
	}
	return nil
}
