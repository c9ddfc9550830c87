// Package pipeline derives the ordered view a table should draw:
// filter (plain or delegated to a search index), then a stable,
// locale-aware sort.
//
// ComputeView is pure. It never mutates its inputs, and the result depends
// only on the rows, the filter value, the sort column and direction, the
// columns, whether an index was supplied, and Options.
package pipeline

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/table"
)

// Options selects pipeline behavior that is not part of the table state.
type Options struct {
	// Fuzzy delegates filtering to the search index when one is supplied.
	Fuzzy bool

	// ServerSide bypasses both local stages; rows are already ordered by the
	// remote source.
	ServerSide bool

	// Locale drives collation. The zero Tag collates with the root order.
	Locale language.Tag
}

// ComputeView returns the filtered and sorted rows. idx may be nil.
func ComputeView[R any](rows []R, st table.State[R], cols []table.Column[R], idx search.Index[R], opts Options) []R {
	if opts.ServerSide {
		return rows
	}

	out := Filter(rows, st.FilterValue, cols, idx, opts.Fuzzy)

	col, ok := table.FindColumn(cols, st.SortColumn)
	if !ok {
		return out
	}
	return Sort(out, col, st.SortDirection, opts.Locale)
}

// Filter applies the filter stage. An empty term passes every row. With
// fuzzy enabled and an index present the index result is returned as
// ranked; otherwise a row is kept when any column's folded text contains
// the folded term.
func Filter[R any](rows []R, term string, cols []table.Column[R], idx search.Index[R], fuzzy bool) []R {
	if term == "" {
		return rows
	}
	if fuzzy && idx != nil {
		return idx.Query(term)
	}

	needle := table.Fold(term)
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		if matches(row, needle, cols) {
			out = append(out, row)
		}
	}
	return out
}

func matches[R any](row R, needle string, cols []table.Column[R]) bool {
	for _, c := range cols {
		s, ok := c.Text(row)
		if !ok {
			continue
		}
		if strings.Contains(table.Fold(s), needle) {
			return true
		}
	}
	return false
}

type keyed[R any] struct {
	row R
	key []byte
}

// Sort returns a copy of rows ordered by col's string value under the
// locale's collation. Equal keys keep their relative order in both
// directions; desc negates the comparator rather than reversing the output.
func Sort[R any](rows []R, col table.Column[R], dir table.SortDirection, locale language.Tag) []R {
	if len(rows) < 2 {
		return rows
	}

	c := collate.New(locale)
	var buf collate.Buffer
	items := make([]keyed[R], len(rows))
	for i, row := range rows {
		s, _ := col.Text(row)
		items[i] = keyed[R]{row: row, key: c.KeyFromString(&buf, s)}
	}

	desc := dir == table.SortDesc
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return bytes.Compare(items[j].key, items[i].key) < 0
		}
		return bytes.Compare(items[i].key, items[j].key) < 0
	})

	out := make([]R, len(items))
	for i, it := range items {
		out[i] = it.row
	}
	return out
}
