package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/tablegrid/internal/layout"
	"github.com/roach88/tablegrid/internal/pipeline"
	"github.com/roach88/tablegrid/internal/resize"
	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/serversync"
	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/timer"
	"github.com/roach88/tablegrid/internal/virtual"
)

// Table is the handle for one table instance.
//
// Thread-safety model:
//   - Entry points (RequestSort, SetFilterTerm, Resize*, TogglePin, ...):
//     safe from any goroutine, serialized by one lock
//   - Reads (State, Rows, Window, Columns, ...): safe from any goroutine and
//     from Subscribe listeners
//   - Run: at most one goroutine; Drain may be used instead
type Table[R any] struct {
	id    string
	cfg   config[R]
	clock *Clock
	queue *eventQueue

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes every mutation.
	mu      sync.Mutex
	store   *state.Store[R]
	resizer *resize.Controller[R]
	layout  *layout.Manager[R]
	adapter *serversync.Adapter[R]
	vz      *virtual.Virtualizer
	filter  *timer.Debouncer

	// filterGen stamps posted filter commits. SetFilterTerm, FlushFilter
	// and Reset advance it, so a commit still queued after any of them is
	// dropped.
	filterGen atomic.Uint64

	memo   pipeline.Memo[R]
	index  *search.Cache[R]
	fields []search.Field[R]

	// readMu guards the values readers may observe without mu.
	readMu  sync.Mutex
	term    string
	session *resize.Session
}

// New creates a table over data and columns.
//
// New returns a configuration error for duplicate column ids, a fuzzy
// threshold outside [0, 1], a non-positive uniform row height, a negative
// overscan or a negative page size. Everything else that can be wrong with
// a configuration (unknown sort column, malformed width) degrades silently.
func New[R any](data []R, columns []table.Column[R], opts ...Option[R]) (*Table[R], error) {
	cfg := defaultConfig[R]()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate(columns, cfg); err != nil {
		return nil, err
	}
	if cfg.name == "" {
		cfg.name = uuid.Must(uuid.NewV7()).String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Table[R]{
		id:     cfg.name,
		cfg:    cfg,
		clock:  NewClock(),
		queue:  newEventQueue(),
		ctx:    ctx,
		cancel: cancel,
	}

	t.store = state.New(data, columns, cfg.state...)
	t.term = t.store.Snapshot().FilterValue

	resizeOpts := []resize.Option{resize.WithCapture(cfg.capture)}
	if cfg.measurer != nil {
		resizeOpts = append(resizeOpts, resize.WithMeasurer(cfg.measurer))
	}
	t.resizer = resize.NewController(t.store, resizeOpts...)
	t.layout = layout.NewManager(t.store)
	t.filter = timer.NewDebouncer(cfg.scheduler, cfg.debounce)

	if cfg.fuzzy {
		t.index = search.NewCache(cfg.builder)
		t.fields = search.FieldsFromColumns(columns, cfg.keys)
	}

	t.adapter = serversync.New(t.store, cfg.fetcher,
		serversync.WithEnabled(cfg.fetcher != nil),
		serversync.WithPageSize(cfg.pageSize),
		serversync.WithTokens(cfg.tokens),
		serversync.WithDispatch(t.dispatcher(EventTypeFetchComplete)),
	)

	vopts := virtual.Options{
		Model:           cfg.model,
		Overscan:        cfg.overscan,
		ContainerHeight: cfg.container,
		Disabled:        !cfg.virtual,
		ScrollingDelay:  cfg.scrollingDelay,
		Scheduler:       cfg.scheduler,
	}
	if cfg.scrollingDelay > 0 {
		vopts.Dispatch = t.dispatcher(EventTypeScrollFrame)
	}
	t.vz = virtual.New(len(t.Rows()), vopts)

	slog.Debug("table created",
		"table", t.id,
		"rows", len(data),
		"columns", len(columns),
		"fuzzy", cfg.fuzzy,
		"virtual", cfg.virtual,
		"server", t.adapter.Enabled(),
	)

	if t.adapter.Enabled() {
		t.mu.Lock()
		t.refreshLocked()
		t.mu.Unlock()
	}
	return t, nil
}

// validate rejects option combinations that cannot produce a usable table.
func validate[R any](columns []table.Column[R], cfg config[R]) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.ID == "" {
			return configError("", "column id is empty")
		}
		if seen[c.ID] {
			return configError(c.ID, "duplicate column id")
		}
		seen[c.ID] = true
	}
	if cfg.fuzzy && (cfg.threshold < 0 || cfg.threshold > 1) {
		return configError("", "fuzzy threshold %g outside [0, 1]", cfg.threshold)
	}
	if cfg.virtual && !cfg.model.Variable() && cfg.model.RowHeight <= 0 {
		return configError("", "row height must be > 0, got %g", cfg.model.RowHeight)
	}
	if cfg.overscan < 0 {
		return configError("", "overscan must be >= 0, got %d", cfg.overscan)
	}
	if cfg.pageSize < 0 {
		return configError("", "page size must be >= 0, got %d", cfg.pageSize)
	}
	return nil
}

// ID returns the table id used in logs.
func (t *Table[R]) ID() string {
	return t.id
}

// Subscribe registers fn to run with the new snapshot after every accepted
// mutation. It returns the unsubscribe func.
func (t *Table[R]) Subscribe(fn state.Listener[R]) func() {
	return t.store.Subscribe(fn)
}

// RequestSort sorts by columnID: ascending for a new column, toggling
// direction for the active one. Unknown and non-sortable columns are
// ignored and false is returned.
func (t *Table[R]) RequestSort(columnID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	col, ok := table.FindColumn(t.store.Columns(), columnID)
	if !ok || !col.Sortable {
		slog.Warn("sort ignored", "table", t.id, "column", columnID, "known", ok)
		return false
	}

	snap := t.store.Snapshot()
	dir := table.SortAsc
	if snap.SortColumn == columnID {
		dir = snap.SortDirection.Toggle()
	}
	t.store.Update(state.Patch[R]{SortColumn: state.Ptr(columnID), SortDirection: state.Ptr(dir)})
	slog.Debug("sort requested", "table", t.id, "column", columnID, "dir", dir)

	t.refreshLocked()
	return true
}

// ClearSort removes the active sort.
func (t *Table[R]) ClearSort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.Snapshot().SortColumn == "" {
		return
	}
	t.store.Update(state.Patch[R]{SortColumn: state.Ptr(""), SortDirection: state.Ptr(table.SortAsc)})
	slog.Debug("sort cleared", "table", t.id)
	t.refreshLocked()
}

// SetFilterTerm records the raw term and schedules its debounced commit
// into State.FilterValue. FilterTerm reflects text immediately.
func (t *Table[R]) SetFilterTerm(text string) {
	t.readMu.Lock()
	t.term = text
	t.readMu.Unlock()
	gen := t.filterGen.Add(1)

	if t.filter.Delay() <= 0 {
		t.mu.Lock()
		t.commitFilterLocked(text)
		t.mu.Unlock()
		return
	}
	t.filter.Schedule(func() {
		t.post(EventTypeFilterCommit, func() {
			if t.filterGen.Load() != gen {
				slog.Debug("superseded filter commit dropped", "table", t.id, "term", text)
				return
			}
			t.commitFilterLocked(text)
		})
	})
}

// FlushFilter commits the raw term now, dropping a pending debounce and
// any commit already queued.
func (t *Table[R]) FlushFilter() {
	t.filter.Cancel()
	t.filterGen.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commitFilterLocked(t.FilterTerm())
}

func (t *Table[R]) commitFilterLocked(text string) {
	if t.store.Snapshot().FilterValue == text {
		return
	}
	t.store.Update(state.Patch[R]{FilterValue: state.Ptr(text)})
	slog.Debug("filter committed", "table", t.id, "term", text)
	t.refreshLocked()
}

// ResizeStart begins a resize of columnID at pointer position x. A second
// start while a session is active is rejected with a RESIZE_ACTIVE error.
// Unknown columns are ignored.
func (t *Table[R]) ResizeStart(columnID string, x float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.resizer.Start(columnID, x)
	switch {
	case errors.Is(err, resize.ErrSessionActive):
		active, _ := t.resizer.Session()
		slog.Warn("resize rejected", "table", t.id, "column", columnID, "active", active.ColumnID)
		return &TableError{
			Code:    ErrCodeResizeActive,
			Message: "another column is being resized",
			Column:  columnID,
			Details: map[string]string{"active": active.ColumnID},
			Err:     err,
		}
	case errors.Is(err, resize.ErrUnknownColumn):
		slog.Warn("resize ignored", "table", t.id, "column", columnID, "known", false)
		return nil
	case err != nil:
		return fmt.Errorf("resize start: %w", err)
	}

	t.syncSessionLocked()
	s, _ := t.resizer.Session()
	slog.Debug("resize started", "table", t.id, "column", columnID, "x", x, "width", s.WidthAtStart)
	t.refreshLocked()
	return nil
}

// ResizeMove applies pointer position x and returns the candidate width.
// It returns 0 when no resize is active.
func (t *Table[R]) ResizeMove(x float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.resizer.Move(x)
	if err != nil {
		return 0
	}
	t.syncSessionLocked()
	return w
}

// ResizeEnd finishes the gesture and returns the final width, or 0 when no
// resize is active.
func (t *Table[R]) ResizeEnd() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, _ := t.resizer.Session()
	w, err := t.resizer.End()
	if err != nil {
		return 0
	}
	t.syncSessionLocked()
	slog.Debug("resize ended", "table", t.id, "column", s.ColumnID, "width", w, "delta", s.DeltaX)
	t.refreshLocked()
	return w
}

// CancelResize abandons the gesture, restoring the starting width.
func (t *Table[R]) CancelResize() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.resizer.Active() {
		return
	}
	s, _ := t.resizer.Session()
	t.resizer.Cancel()
	t.syncSessionLocked()
	slog.Debug("resize cancelled", "table", t.id, "column", s.ColumnID)
	t.refreshLocked()
}

func (t *Table[R]) syncSessionLocked() {
	var sp *resize.Session
	if s, ok := t.resizer.Session(); ok {
		sp = &s
	}
	t.readMu.Lock()
	t.session = sp
	t.readMu.Unlock()
}

// TogglePin pins columnID to side, or unpins it for table.PinNone.
func (t *Table[R]) TogglePin(columnID string, side table.PinSide) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.layout.TogglePin(columnID, side) {
		slog.Warn("pin ignored", "table", t.id, "column", columnID, "side", side)
		return false
	}
	slog.Debug("pin toggled", "table", t.id, "column", columnID, "side", side)
	t.refreshLocked()
	return true
}

// ToggleVisibility hides or re-shows columnID. A re-shown column is
// appended to the end of the visible list.
func (t *Table[R]) ToggleVisibility(columnID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.layout.ToggleVisibility(columnID) {
		slog.Warn("visibility toggle ignored", "table", t.id, "column", columnID)
		return false
	}
	slog.Debug("visibility toggled", "table", t.id, "column", columnID,
		"visible", t.store.Snapshot().IsVisible(columnID))
	t.refreshLocked()
	return true
}

// ActivateRow reports a row activation (click or keyboard) to the
// configured callback.
func (t *Table[R]) ActivateRow(row R, index int) {
	slog.Debug("row activated", "table", t.id, "index", index)
	if t.cfg.onActivate != nil {
		t.cfg.onActivate(row, index)
	}
}

// ScrollTo jumps to row index and returns the new scroll offset.
func (t *Table[R]) ScrollTo(index int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vz.ScrollTo(index)
}

// Scroll records a scroll event at offset. With a scrolling delay the
// window is recomputed once per frame, on the event loop.
func (t *Table[R]) Scroll(offset float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vz.Scroll(offset)
}

// SetContainerHeight applies a viewport measurement.
func (t *Table[R]) SetContainerHeight(h float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vz.SetContainerHeight(h)
}

// SetPage moves to page (1-based). It reports whether a fetch was issued
// and is a no-op when server paging is off.
func (t *Table[R]) SetPage(page int) bool {
	if !t.adapter.Enabled() {
		slog.Warn("page change ignored: server paging is off", "table", t.id, "page", page)
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	issued := t.adapter.SetPage(t.ctx, page)
	t.refreshLocked()
	return issued
}

// SetPageSize changes the page size and returns to page 1.
func (t *Table[R]) SetPageSize(n int) bool {
	if !t.adapter.Enabled() {
		slog.Warn("page size change ignored: server paging is off", "table", t.id, "page_size", n)
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	issued := t.adapter.SetPageSize(t.ctx, n)
	t.refreshLocked()
	return issued
}

// Refresh re-fetches the current page.
func (t *Table[R]) Refresh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.adapter.Refresh(t.ctx)
}

// SetData replaces the row collection.
func (t *Table[R]) SetData(rows []R) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store.Update(state.Patch[R]{Data: &rows})
	slog.Debug("data replaced", "table", t.id, "rows", len(rows))
	t.refreshLocked()
}

// Reset discards sort, filter, pin, visibility and size customizations.
// An active resize is cancelled and a pending or queued filter commit
// dropped. The configured resize mode is kept. With server paging the table
// returns to page 1 and refetches, since the reset clears the page totals.
func (t *Table[R]) Reset() {
	t.filter.Cancel()
	t.filterGen.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.resizer.Cancel()
	t.syncSessionLocked()

	mode := t.store.Snapshot().ColumnResizeMode
	if t.store.Reset().ColumnResizeMode != mode {
		t.store.Update(state.Patch[R]{ColumnResizeMode: &mode})
	}

	t.readMu.Lock()
	t.term = ""
	t.readMu.Unlock()

	slog.Debug("table reset", "table", t.id)
	if t.adapter.Enabled() {
		t.adapter.Reset(t.ctx)
	}
	t.refreshLocked()
}

// refreshLocked re-derives everything that follows state: the remote
// request and the virtualizer's row count.
func (t *Table[R]) refreshLocked() {
	if t.adapter.Enabled() {
		t.adapter.Sync(t.ctx)
	}
	t.vz.SetCount(len(t.Rows()))
}

// dispatcher returns a func that posts work as events of type kind.
func (t *Table[R]) dispatcher(kind EventType) func(func()) {
	return func(f func()) { t.post(kind, f) }
}

// post enqueues deferred work. Work posted after Close is dropped.
func (t *Table[R]) post(kind EventType, f func()) {
	ev := Event{Type: kind, Seq: t.clock.Next(), Apply: f}
	if !t.queue.Enqueue(ev) {
		slog.Debug("event dropped: table closed", "table", t.id, "type", kind, "seq", ev.Seq)
	}
}

// apply runs one event under the writer lock.
func (t *Table[R]) apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slog.Debug("applying event", "table", t.id, "type", ev.Type, "seq", ev.Seq)
	ev.Apply()
	t.refreshLocked()
}

// Run applies posted events until ctx is cancelled or Close is called.
// Must be called from at most one goroutine.
func (t *Table[R]) Run(ctx context.Context) error {
	slog.Debug("table loop starting", "table", t.id)

	for {
		if ev, ok := t.queue.TryDequeue(); ok {
			t.apply(ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("table loop stopping: context cancelled", "table", t.id)
			return ctx.Err()

		case <-t.queue.Wait():
			if t.queue.Closed() && t.queue.Len() == 0 {
				slog.Debug("table loop stopping: closed", "table", t.id)
				return nil
			}
		}
	}
}

// Drain applies every queued event and returns how many ran. Events posted
// while draining are applied too.
func (t *Table[R]) Drain() int {
	n := 0
	for {
		ev, ok := t.queue.TryDequeue()
		if !ok {
			return n
		}
		t.apply(ev)
		n++
	}
}

// Wait blocks until in-flight fetches have posted their completions.
func (t *Table[R]) Wait() {
	t.adapter.Wait()
}

// Settle waits for in-flight fetches and drains the queue. It is the
// synchronous replacement for Run used by the CLI and tests.
func (t *Table[R]) Settle() int {
	n := 0
	for {
		t.Wait()
		ran := t.Drain()
		n += ran
		if ran == 0 {
			return n
		}
	}
}

// Close cancels in-flight work and stops Run.
func (t *Table[R]) Close() {
	t.filter.Cancel()
	t.vz.Close()
	t.adapter.Close()
	t.cancel()
	t.queue.Close()
}
