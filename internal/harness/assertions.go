package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tablegrid/internal/engine"
	"github.com/roach88/tablegrid/internal/table"
)

// AssertionContext is the view assertions read from.
type AssertionContext struct {
	Table *engine.Table[table.Record]

	// Key is the default row field for view_order.
	Key string
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertViewOrder:
		return assertViewOrder(a, actx)
	case AssertRowCount:
		return assertRowCount(a, actx)
	case AssertWindow:
		return assertWindow(a, actx)
	case AssertWidth:
		return assertWidth(a, actx)
	case AssertColumnOrder:
		return assertColumnOrder(a, actx)
	case AssertPinned:
		return assertPinned(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertViewOrder compares the column values of every view row, in order.
func assertViewOrder(a Assertion, actx *AssertionContext) error {
	key := a.Column
	if key == "" {
		key = actx.Key
	}
	got := ViewValues(actx.Table, key)
	if !slices.Equal(got, a.Expect) {
		return &AssertionError{
			Type:     AssertViewOrder,
			Expected: fmt.Sprintf("%s = %v", key, a.Expect),
			Actual:   fmt.Sprintf("%s = %v", key, got),
		}
	}
	return nil
}

func assertRowCount(a Assertion, actx *AssertionContext) error {
	if got := len(actx.Table.Rows()); got != *a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", *a.Count),
			Actual:   fmt.Sprintf("%d rows", got),
		}
	}
	return nil
}

func assertWindow(a Assertion, actx *AssertionContext) error {
	w := actx.Table.Window()
	if w.Start != *a.Start || w.End != *a.End {
		return &AssertionError{
			Type:     AssertWindow,
			Expected: fmt.Sprintf("[%d, %d]", *a.Start, *a.End),
			Actual:   fmt.Sprintf("[%d, %d]", w.Start, w.End),
		}
	}
	return nil
}

func assertWidth(a Assertion, actx *AssertionContext) error {
	if got := actx.Table.ColumnWidth(a.Column); got != a.Width {
		return &AssertionError{
			Type:     AssertWidth,
			Expected: fmt.Sprintf("%s = %g", a.Column, a.Width),
			Actual:   fmt.Sprintf("%s = %g", a.Column, got),
		}
	}
	return nil
}

func assertColumnOrder(a Assertion, actx *AssertionContext) error {
	got := table.ColumnIDs(actx.Table.Columns())
	if !slices.Equal(got, a.Expect) {
		return &AssertionError{
			Type:     AssertColumnOrder,
			Expected: fmt.Sprintf("%v", a.Expect),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertPinned treats a missing list as empty.
func assertPinned(a Assertion, actx *AssertionContext) error {
	p := actx.Table.State().PinnedColumns
	if !slices.Equal(p.Left, a.Left) || !slices.Equal(p.Right, a.Right) {
		return &AssertionError{
			Type:     AssertPinned,
			Expected: fmt.Sprintf("left=%v right=%v", a.Left, a.Right),
			Actual:   fmt.Sprintf("left=%v right=%v", p.Left, p.Right),
		}
	}
	return nil
}

// ViewValues returns the display text of field key for every view row.
// Missing values render as "".
func ViewValues(t *engine.Table[table.Record], key string) []string {
	acc := table.Key(key)
	rows := t.Rows()
	out := make([]string, len(rows))
	for i, r := range rows {
		v, _ := acc(r)
		out[i], _ = table.Stringify(v)
	}
	return out
}
