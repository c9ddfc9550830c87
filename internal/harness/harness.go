package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tablegrid/internal/compiler"
	"github.com/roach88/tablegrid/internal/engine"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/store"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/testutil"
)

// headSize is the number of leading view rows recorded per trace event.
const headSize = 3

// serverDataset names the in-memory dataset that backs server-paged
// scenarios.
const serverDataset = "scenario"

// Harness is the test execution engine.
// It replays scenario steps against one table with a manual scheduler, so
// debounce and scroll frames fire only on explicit advance steps.
type Harness struct {
	spec   table.Spec
	cols   []table.Column[table.Record]
	key    string
	table  *engine.Table[table.Record]
	sched  *testutil.ManualScheduler
	store  *store.Store
	logger *slog.Logger
	seq    int
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh table; server-paged scenarios get a
// fresh in-memory SQLite dataset. Every step is settled (pending fetches
// completed and queued events applied) before the next one runs.
func Run(scenario *Scenario) (*Result, error) {
	h, err := New(scenario)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.Apply(step); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Kind(), err)
		}
		result.Trace = append(result.Trace, h.snapshot(step))
	}

	actx := &AssertionContext{Table: h.table, Key: h.key}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// New builds the table a scenario runs against.
func New(scenario *Scenario) (*Harness, error) {
	spec, err := resolveSpec(scenario)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(&spec); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid table %q: %w", spec.Name, verrs[0])
	}

	h := &Harness{
		spec:   spec,
		cols:   table.RecordColumns(spec.Columns),
		key:    spec.Columns[0].ID,
		sched:  testutil.NewManualScheduler(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	rows := scenarioRows(scenario)
	opts := engine.SpecOptions[table.Record](spec.Options)
	opts = append(opts,
		engine.WithName[table.Record](scenario.Name),
		engine.WithScheduler[table.Record](h.sched),
		engine.WithTokens[table.Record](testutil.NewFixedTokenGenerator(scenario.Tokens...)),
	)

	if spec.Options.Server.Enabled {
		fetcher, err := h.openDataset(rows)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithServer[table.Record](fetcher, spec.Options.Server.PageSize))
		rows = nil
	}

	tbl, err := engine.New(rows, h.cols, opts...)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	h.table = tbl
	tbl.Settle()

	h.logger.Debug("scenario table ready",
		"scenario", scenario.Name,
		"rows", len(tbl.Rows()),
		"server", spec.Options.Server.Enabled)
	return h, nil
}

// Table returns the table under test.
func (h *Harness) Table() *engine.Table[table.Record] {
	return h.table
}

// Close releases the table and the backing store.
func (h *Harness) Close() {
	if h.table != nil {
		h.table.Close()
	}
	if h.store != nil {
		h.store.Close()
	}
}

// openDataset loads rows into a fresh in-memory dataset and returns its
// fetcher.
func (h *Harness) openDataset(rows []table.Record) (remote.Fetcher[table.Record], error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h.store = st

	ctx := context.Background()
	var cols []string
	for _, c := range h.spec.Columns {
		cols = append(cols, c.AccessorKey())
	}
	if _, err := st.CreateDataset(ctx, serverDataset, cols, h.spec.Options.Fuzzy.Keys); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	if _, err := st.InsertRows(ctx, serverDataset, rows); err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	return st.Source(serverDataset), nil
}

// resolveSpec returns the inline table or compiles the named table from the
// scenario's CUE file.
func resolveSpec(s *Scenario) (table.Spec, error) {
	if s.Spec == "" {
		return table.Spec{Name: s.Name, Columns: s.Columns, Options: s.Options}, nil
	}

	data, err := os.ReadFile(s.Spec)
	if err != nil {
		return table.Spec{}, fmt.Errorf("failed to read spec: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(s.Spec))
	if err := v.Err(); err != nil {
		return table.Spec{}, fmt.Errorf("failed to compile %s: %w", s.Spec, err)
	}
	specs, err := compiler.CompileTables(v)
	if err != nil {
		return table.Spec{}, err
	}
	for _, spec := range specs {
		if spec.Name == s.Table {
			return spec, nil
		}
	}
	return table.Spec{}, fmt.Errorf("table %q not found in %s", s.Table, s.Spec)
}

// scenarioRows returns the inline rows followed by generated ones.
func scenarioRows(s *Scenario) []table.Record {
	rows := make([]table.Record, 0, len(s.Rows)+s.GenerateRows)
	rows = append(rows, s.Rows...)
	for i := 0; i < s.GenerateRows; i++ {
		rows = append(rows, table.Record{"id": i, "name": fmt.Sprintf("row-%04d", i)})
	}
	return rows
}

// Apply runs one step and settles the table.
func (h *Harness) Apply(step Step) error {
	t := h.table
	switch step.Kind() {
	case StepSort:
		t.RequestSort(step.Sort)
	case StepClearSort:
		t.ClearSort()
	case StepFilter:
		t.SetFilterTerm(*step.Filter)
	case StepFlush:
		t.FlushFilter()
	case StepAdvance:
		h.sched.Advance(step.Advance)
	case StepResize:
		r := step.Resize
		if err := t.ResizeStart(r.Column, r.From); err != nil {
			return err
		}
		for _, x := range r.Moves {
			t.ResizeMove(x)
		}
		if r.Cancel {
			t.CancelResize()
		} else {
			t.ResizeEnd()
		}
	case StepPin:
		side, _ := table.ParsePinSide(step.Pin.Side)
		t.TogglePin(step.Pin.Column, side)
	case StepToggle:
		t.ToggleVisibility(step.Toggle)
	case StepScroll:
		t.Scroll(*step.Scroll)
	case StepScrollTo:
		t.ScrollTo(*step.ScrollTo)
	case StepContainer:
		t.SetContainerHeight(*step.Container)
	case StepPage:
		t.SetPage(step.Page)
	case StepReset:
		t.Reset()
	default:
		return fmt.Errorf("invalid step %v", step.Kinds())
	}

	t.Settle()
	return nil
}

// snapshot records the settled view after step.
func (h *Harness) snapshot(step Step) TraceEvent {
	h.seq++
	t := h.table
	st := t.State()
	rows := t.Rows()

	ev := TraceEvent{
		Seq:     h.seq,
		Step:    step.Kind(),
		Args:    stepArgs(step),
		Filter:  st.FilterValue,
		Rows:    len(rows),
		Head:    make([]string, 0, headSize),
		Columns: table.ColumnIDs(t.Columns()),
	}
	if st.SortColumn != "" {
		ev.Sort = st.SortColumn + " " + string(st.SortDirection)
	}
	keyCol, _ := table.FindColumn(h.cols, h.key)
	for i := 0; i < len(rows) && i < headSize; i++ {
		s, _ := keyCol.Text(rows[i])
		ev.Head = append(ev.Head, s)
	}
	if len(st.ColumnSizing) > 0 {
		ev.Widths = st.ColumnSizing
	}
	if h.spec.Options.Virtual.Enabled {
		w := t.Window()
		ev.Window = &WindowTrace{Start: w.Start, End: w.End}
	}
	if t.ServerSide() {
		ev.Page, _ = t.Page()
	}
	return ev
}

// stepArgs returns the trace arguments of step.
func stepArgs(step Step) map[string]any {
	switch step.Kind() {
	case StepSort:
		return map[string]any{"column": step.Sort}
	case StepFilter:
		return map[string]any{"term": *step.Filter}
	case StepAdvance:
		return map[string]any{"duration": step.Advance.String()}
	case StepResize:
		args := map[string]any{
			"column": step.Resize.Column,
			"from":   step.Resize.From,
			"moves":  step.Resize.Moves,
		}
		if step.Resize.Cancel {
			args["cancel"] = true
		}
		return args
	case StepPin:
		return map[string]any{"column": step.Pin.Column, "side": step.Pin.Side}
	case StepToggle:
		return map[string]any{"column": step.Toggle}
	case StepScroll:
		return map[string]any{"offset": *step.Scroll}
	case StepScrollTo:
		return map[string]any{"index": *step.ScrollTo}
	case StepContainer:
		return map[string]any{"height": *step.Container}
	case StepPage:
		return map[string]any{"page": step.Page}
	default:
		return nil
	}
}
