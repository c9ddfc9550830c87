// Package layout interprets and mutates the pinned and visible column lists.
//
// Render order is left-pinned (left-list order), then unpinned (definition
// order), then right-pinned (right-list order). Sticky offsets are the summed
// widths of the pinned columns between a column and its edge.
package layout

import (
	"github.com/roach88/tablegrid/internal/table"
)

// ToggleVisibility removes id from visible, or appends it to the end.
// A re-shown column is not restored to its original position.
func ToggleVisibility(visible []string, id string) []string {
	out := make([]string, 0, len(visible)+1)
	found := false
	for _, v := range visible {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// TogglePin removes id from both pin lists, then appends it to the list for
// side. PinNone leaves it unpinned.
func TogglePin(p table.Pinned, id string, side table.PinSide) table.Pinned {
	out := table.Pinned{
		Left:  without(p.Left, id),
		Right: without(p.Right, id),
	}
	switch side {
	case table.PinLeft:
		out.Left = append(out.Left, id)
	case table.PinRight:
		out.Right = append(out.Right, id)
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Sanitize drops duplicate and unknown ids from p. An id on both sides stays
// on the left. A nil known set accepts every id.
func Sanitize(p table.Pinned, known []string) table.Pinned {
	var allowed map[string]bool
	if known != nil {
		allowed = make(map[string]bool, len(known))
		for _, id := range known {
			allowed[id] = true
		}
	}

	seen := make(map[string]bool)
	keep := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if seen[id] || (allowed != nil && !allowed[id]) {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
		return out
	}
	return table.Pinned{Left: keep(p.Left), Right: keep(p.Right)}
}

// Reorder returns cols in render order. Pinned ids that name no column are
// skipped.
func Reorder[R any](cols []table.Column[R], p table.Pinned) []table.Column[R] {
	byID := make(map[string]table.Column[R], len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}

	out := make([]table.Column[R], 0, len(cols))
	placed := make(map[string]bool, len(cols))
	appendPinned := func(ids []string) {
		for _, id := range ids {
			c, ok := byID[id]
			if !ok || placed[id] {
				continue
			}
			placed[id] = true
			out = append(out, c)
		}
	}

	appendPinned(p.Left)
	right := make(map[string]bool, len(p.Right))
	for _, id := range p.Right {
		right[id] = true
	}
	for _, c := range cols {
		if placed[c.ID] || right[c.ID] {
			continue
		}
		placed[c.ID] = true
		out = append(out, c)
	}
	appendPinned(p.Right)
	return out
}

// Ordered returns the visible columns of st in render order.
func Ordered[R any](cols []table.Column[R], st table.State[R]) []table.Column[R] {
	visible := make(map[string]bool, len(st.VisibleColumns))
	for _, id := range st.VisibleColumns {
		visible[id] = true
	}

	all := Reorder(cols, st.PinnedColumns)
	out := make([]table.Column[R], 0, len(all))
	for _, c := range all {
		if visible[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// LeftOffset sums the widths of left-pinned columns rendered before id in
// ordered. It is 0 when id is not rendered.
func LeftOffset[R any](ordered []table.Column[R], st table.State[R], id string) float64 {
	var sum float64
	for _, c := range ordered {
		if c.ID == id {
			return sum
		}
		if st.PinnedColumns.Side(c.ID) == table.PinLeft {
			sum += table.ColumnWidth(st.ColumnSizing, c)
		}
	}
	return 0
}

// RightOffset sums the widths of right-pinned columns rendered after id in
// ordered. It is 0 when id is not rendered.
func RightOffset[R any](ordered []table.Column[R], st table.State[R], id string) float64 {
	var sum float64
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]
		if c.ID == id {
			return sum
		}
		if st.PinnedColumns.Side(c.ID) == table.PinRight {
			sum += table.ColumnWidth(st.ColumnSizing, c)
		}
	}
	return 0
}

// HeaderGroup is a run of adjacent rendered columns sharing a group label.
// Columns without a group form single-column groups with an empty label.
type HeaderGroup struct {
	Label   string
	Columns []string
	Width   float64
}

// HeaderGroups splits ordered into header groups.
func HeaderGroups[R any](ordered []table.Column[R], st table.State[R]) []HeaderGroup {
	var groups []HeaderGroup
	for _, c := range ordered {
		w := table.ColumnWidth(st.ColumnSizing, c)
		n := len(groups)
		if n > 0 && c.Group != "" && groups[n-1].Label == c.Group {
			groups[n-1].Columns = append(groups[n-1].Columns, c.ID)
			groups[n-1].Width += w
			continue
		}
		groups = append(groups, HeaderGroup{Label: c.Group, Columns: []string{c.ID}, Width: w})
	}
	return groups
}

// TotalWidth sums the widths of ordered.
func TotalWidth[R any](ordered []table.Column[R], st table.State[R]) float64 {
	var sum float64
	for _, c := range ordered {
		sum += table.ColumnWidth(st.ColumnSizing, c)
	}
	return sum
}
