// Package resize turns a pointer-drag gesture into column width updates.
//
// The controller is a two-state machine, Idle and Resizing, with at most one
// active session. A session acquires a global pointer Capture on Start and
// releases it exactly once, on End or Cancel.
//
// Write policy by table.ResizeMode:
//
//	onChange  every Move writes the clamped width into ColumnSizing
//	onResize  Move only buffers; End writes the last width once
//
// Controller is not safe for concurrent use. The engine serializes calls.
package resize

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
)

var (
	// ErrSessionActive rejects a Start while another column is mid-resize.
	ErrSessionActive = errors.New("resize: session already active")

	// ErrNoSession is returned by Move and End when Idle.
	ErrNoSession = errors.New("resize: no active session")

	// ErrUnknownColumn rejects a Start for a column that is not defined.
	ErrUnknownColumn = errors.New("resize: unknown column")
)

// Capture acquires global pointer move/up delivery for the duration of a
// gesture, so the drag completes even when the pointer leaves the header.
type Capture interface {
	Acquire() (release func())
}

// CaptureFunc adapts a function to Capture.
type CaptureFunc func() func()

func (f CaptureFunc) Acquire() func() { return f() }

type nopCapture struct{}

func (nopCapture) Acquire() func() { return func() {} }

// Measurer reports the rendered width of a column. ok is false when the
// column has not been measured yet.
type Measurer func(columnID string) (width float64, ok bool)

// Session is the state of the active gesture.
type Session struct {
	ColumnID     string
	StartX       float64
	CurrentX     float64
	DeltaX       float64
	WidthAtStart float64

	// Width is the candidate column width, floored at table.MinColumnWidth.
	Width float64

	// Preview is the live guide width, floored at table.MinDragWidth.
	Preview float64

	mode    table.ResizeMode
	release func()
}

// Option configures a Controller.
type Option func(*config)

type config struct {
	capture Capture
	measure Measurer
}

// WithCapture sets the pointer capture acquired for each session.
func WithCapture(c Capture) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.capture = c
		}
	}
}

// WithMeasurer sets the rendered-width source read at Start.
func WithMeasurer(m Measurer) Option {
	return func(cfg *config) {
		cfg.measure = m
	}
}

// Controller drives resize sessions against a state store.
type Controller[R any] struct {
	store   *state.Store[R]
	cfg     config
	session *Session
}

// NewController creates an Idle controller.
func NewController[R any](store *state.Store[R], opts ...Option) *Controller[R] {
	cfg := config{capture: nopCapture{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller[R]{store: store, cfg: cfg}
}

// Active reports whether a session is in progress.
func (c *Controller[R]) Active() bool {
	return c.session != nil
}

// Session returns a copy of the active session.
func (c *Controller[R]) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	s := *c.session
	s.release = nil
	return s, true
}

// Start begins a session on columnID at pointer position x.
//
// The starting width is the measured width, else the effective width from
// state (explicit size, initial width, then table.DefaultColumnWidth). When
// ColumnSizing has no entry for the column yet it is seeded with that width
// so later deltas compose against a known baseline.
func (c *Controller[R]) Start(columnID string, x float64) error {
	if c.session != nil {
		return fmt.Errorf("%w: column %q", ErrSessionActive, c.session.ColumnID)
	}
	col, ok := table.FindColumn(c.store.Columns(), columnID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, columnID)
	}

	snap := c.store.Snapshot()
	width := table.ColumnWidth(snap.ColumnSizing, col)
	if c.cfg.measure != nil {
		if w, ok := c.cfg.measure(columnID); ok && w > 0 && !math.IsInf(w, 0) {
			width = w
		}
	}
	if _, sized := snap.ColumnSizing[columnID]; !sized {
		c.store.Update(state.Patch[R]{ColumnSizing: map[string]float64{columnID: width}})
	}

	c.session = &Session{
		ColumnID:     columnID,
		StartX:       x,
		CurrentX:     x,
		WidthAtStart: width,
		Width:        table.ClampWidth(width),
		Preview:      math.Max(width, table.MinDragWidth),
		mode:         snap.ColumnResizeMode,
		release:      once(c.cfg.capture.Acquire()),
	}
	return nil
}

// Move updates the session for pointer position x and returns the candidate
// width. In onChange mode the width is written immediately.
func (c *Controller[R]) Move(x float64) (float64, error) {
	s := c.session
	if s == nil {
		return 0, ErrNoSession
	}

	s.CurrentX = x
	s.DeltaX = x - s.StartX
	raw := s.WidthAtStart + s.DeltaX
	s.Width = math.Max(raw, table.MinColumnWidth)
	s.Preview = math.Max(raw, table.MinDragWidth)

	if s.mode != table.ResizeOnResize {
		c.write(s.ColumnID, s.Width)
	}
	return s.Width, nil
}

// End finishes the session, flushes a buffered onResize width, releases the
// capture and returns to Idle. It returns the final width.
func (c *Controller[R]) End() (float64, error) {
	s := c.session
	if s == nil {
		return 0, ErrNoSession
	}
	c.session = nil
	defer s.release()

	if s.mode == table.ResizeOnResize && s.DeltaX != 0 {
		c.write(s.ColumnID, s.Width)
	}
	return s.Width, nil
}

// Cancel abandons the session. Buffered onResize widths are discarded and
// live onChange writes are rolled back to the starting width. Cancel on an
// Idle controller is a no-op.
func (c *Controller[R]) Cancel() {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	defer s.release()

	if s.mode != table.ResizeOnResize && s.DeltaX != 0 {
		c.write(s.ColumnID, s.WidthAtStart)
	}
}

func (c *Controller[R]) write(id string, w float64) {
	c.store.Update(state.Patch[R]{ColumnSizing: map[string]float64{id: w}})
}

// once wraps release so repeated calls run it a single time.
func once(release func()) func() {
	done := false
	return func() {
		if done || release == nil {
			return
		}
		done = true
		release()
	}
}
