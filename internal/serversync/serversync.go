// Package serversync bridges a remote paginated source into a state store.
//
// While enabled, the remote source is the ordering authority: the adapter
// issues one fetch whenever page, page size, sort or filter change, and the
// pipeline shows the returned rows as-is. Each request carries a sequence
// number; starting a request cancels the previous one, and any completion
// that is not the latest is discarded, so a late response can never
// overwrite fresher state. A failed fetch keeps the prior rows and is
// surfaced through State.FetchError. There is no retry.
package serversync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
)

// FetchError wraps a remote failure with the request that caused it.
type FetchError struct {
	Request remote.Request
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (size %d, token %s): %v",
		e.Request.Page, e.Request.PageSize, e.Request.Token, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// TokenGenerator creates request correlation tokens.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures an Adapter.
type Option func(*options)

type options struct {
	enabled  bool
	page     int
	pageSize int
	tokens   TokenGenerator
	dispatch func(func())
}

// WithEnabled turns remote paging on.
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithPage sets the initial page (1-based).
func WithPage(page int) Option {
	return func(o *options) { o.page = page }
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithTokens sets the token generator.
func WithTokens(g TokenGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.tokens = g
		}
	}
}

// WithDispatch routes fetch completions through f, typically onto the
// engine's event loop. The default applies them on the fetch goroutine.
func WithDispatch(f func(func())) Option {
	return func(o *options) { o.dispatch = f }
}

// Adapter issues fetches for a store and applies their results.
//
// Thread-safety: all methods are safe for concurrent use. Store updates are
// made without holding the adapter lock, so store listeners may call back
// into the adapter.
type Adapter[R any] struct {
	store   *state.Store[R]
	fetcher remote.Fetcher[R]
	opts    options

	mu        sync.Mutex
	page      int
	pageSize  int
	seq       uint64
	issued    remote.Request
	hasIssued bool
	cancel    context.CancelFunc
	inflight  sync.WaitGroup
	fetches   int
}

// New creates an adapter. Nothing is fetched until Sync.
func New[R any](store *state.Store[R], fetcher remote.Fetcher[R], opts ...Option) *Adapter[R] {
	o := options{page: 1, pageSize: remote.DefaultPageSize, tokens: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	n := remote.Request{Page: o.page, PageSize: o.pageSize}.Normalize()
	return &Adapter[R]{
		store:    store,
		fetcher:  fetcher,
		opts:     o,
		page:     n.Page,
		pageSize: n.PageSize,
	}
}

// Enabled reports whether remote paging is active.
func (a *Adapter[R]) Enabled() bool {
	return a.opts.enabled && a.fetcher != nil
}

// Page returns the current page and page size.
func (a *Adapter[R]) Page() (page, pageSize int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page, a.pageSize
}

// Fetches returns how many fetches were issued.
func (a *Adapter[R]) Fetches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetches
}

// Sync issues a fetch when the request derived from the current snapshot
// differs from the last one issued. A changed filter moves back to page 1.
// It reports whether a fetch was issued.
func (a *Adapter[R]) Sync(ctx context.Context) bool {
	if !a.Enabled() {
		return false
	}
	snap := a.store.Snapshot()

	a.mu.Lock()
	if a.hasIssued && snap.FilterValue != a.issued.Filter {
		a.page = 1
	}
	req := a.requestLocked(snap)
	if a.hasIssued && req.SameQuery(a.issued) {
		a.mu.Unlock()
		return false
	}
	a.mu.Unlock()
	return a.issue(ctx, req, false)
}

// SetPage moves to page (clamped to 1) and syncs.
func (a *Adapter[R]) SetPage(ctx context.Context, page int) bool {
	if page < 1 {
		page = 1
	}
	a.mu.Lock()
	a.page = page
	a.mu.Unlock()
	return a.Sync(ctx)
}

// SetPageSize changes the page size, returns to page 1 and syncs.
func (a *Adapter[R]) SetPageSize(ctx context.Context, n int) bool {
	a.mu.Lock()
	a.pageSize = remote.Request{PageSize: n}.Normalize().PageSize
	a.page = 1
	a.mu.Unlock()
	return a.Sync(ctx)
}

// Refresh re-issues the current request unconditionally.
func (a *Adapter[R]) Refresh(ctx context.Context) bool {
	if !a.Enabled() {
		return false
	}
	snap := a.store.Snapshot()
	a.mu.Lock()
	req := a.requestLocked(snap)
	a.mu.Unlock()
	return a.issue(ctx, req, true)
}

// Reset returns to page 1 and re-issues the request unconditionally. A
// state reset clears TotalRows even when the query itself is unchanged.
func (a *Adapter[R]) Reset(ctx context.Context) bool {
	if !a.Enabled() {
		return false
	}
	a.mu.Lock()
	a.page = 1
	a.mu.Unlock()
	return a.Refresh(ctx)
}

// Wait blocks until every issued fetch goroutine has returned.
func (a *Adapter[R]) Wait() {
	a.inflight.Wait()
}

// Close cancels the in-flight request.
func (a *Adapter[R]) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *Adapter[R]) requestLocked(snap table.State[R]) remote.Request {
	req := remote.Request{
		Page:          a.page,
		PageSize:      a.pageSize,
		SortColumn:    snap.SortColumn,
		SortDirection: snap.SortDirection,
		Filter:        snap.FilterValue,
	}
	return req.Normalize()
}

func (a *Adapter[R]) issue(ctx context.Context, req remote.Request, force bool) bool {
	a.mu.Lock()
	if !force && a.hasIssued && req.SameQuery(a.issued) {
		a.mu.Unlock()
		return false
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.seq++
	req.Seq = a.seq
	req.Token = a.opts.tokens.Generate()
	fctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.issued = req
	a.hasIssued = true
	a.fetches++
	a.inflight.Add(1)
	a.mu.Unlock()

	slog.Info("fetch issued",
		"token", req.Token,
		"seq", req.Seq,
		"page", req.Page,
		"page_size", req.PageSize,
		"sort", req.SortColumn,
		"dir", req.SortDirection,
		"filter", req.Filter)

	a.store.Update(state.Patch[R]{Loading: state.Ptr(true)})

	go func() {
		defer a.inflight.Done()
		page, err := a.fetcher.Fetch(fctx, req)
		done := func() { a.complete(req, page, err) }
		if a.opts.dispatch != nil {
			a.opts.dispatch(done)
			return
		}
		done()
	}()
	return true
}

// complete applies a finished fetch if it is still the latest request.
func (a *Adapter[R]) complete(req remote.Request, page remote.Page[R], err error) {
	a.mu.Lock()
	if req.Seq != a.seq {
		a.mu.Unlock()
		slog.Warn("stale fetch discarded", "token", req.Token, "seq", req.Seq)
		return
	}
	a.cancel = nil
	a.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		a.store.Update(state.Patch[R]{Loading: state.Ptr(false)})
		return
	}
	if err != nil {
		fe := &FetchError{Request: req, Err: err}
		slog.Error("fetch failed", "token", req.Token, "seq", req.Seq, "error", err)
		a.store.Update(state.Patch[R]{
			Loading:       state.Ptr(false),
			FetchError:    fe,
			SetFetchError: true,
		})
		return
	}

	rows := page.Rows
	if rows == nil {
		rows = []R{}
	}
	slog.Info("fetch complete",
		"token", req.Token,
		"seq", req.Seq,
		"rows", len(rows),
		"total_rows", page.TotalRows)
	a.store.Update(state.Patch[R]{
		Data:          &rows,
		TotalRows:     state.Ptr(page.TotalRows),
		Loading:       state.Ptr(false),
		SetFetchError: true,
	})
}
