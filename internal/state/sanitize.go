package state

import "github.com/roach88/tablegrid/internal/table"

// sanitize restores the snapshot invariants after any write:
//   - a column id is pinned on at most one side (left wins), without duplicates
//   - widths are at least table.MinColumnWidth
//   - a missing sizing map, data slice or invalid enum gets its default
//
// Callers that route through the layout package never trip these; they
// guard against UpdateFunc callers writing fields directly.
func sanitize[R any](st table.State[R]) table.State[R] {
	if st.Data == nil {
		st.Data = []R{}
	}
	if st.ColumnSizing == nil {
		st.ColumnSizing = make(map[string]float64)
	}
	for id, w := range st.ColumnSizing {
		st.ColumnSizing[id] = table.ClampWidth(w)
	}
	if !st.SortDirection.Valid() {
		st.SortDirection = table.SortAsc
	}
	if !st.ColumnResizeMode.Valid() {
		st.ColumnResizeMode = table.ResizeOnChange
	}
	st.VisibleColumns = dedupe(st.VisibleColumns, nil)

	seen := make(map[string]bool)
	st.PinnedColumns.Left = dedupe(st.PinnedColumns.Left, seen)
	st.PinnedColumns.Right = dedupe(st.PinnedColumns.Right, seen)
	return st
}

func dedupe(ids []string, seen map[string]bool) []string {
	if seen == nil {
		seen = make(map[string]bool, len(ids))
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
