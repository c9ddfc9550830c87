package engine

import (
	"time"

	"golang.org/x/text/language"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/resize"
	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/serversync"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/timer"
	"github.com/roach88/tablegrid/internal/virtual"
)

// Defaults applied by New.
const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultRowHeight = 48
	DefaultOverscan  = 5
)

// Option configures a Table.
type Option[R any] func(*config[R])

type config[R any] struct {
	name      string
	state     []table.Option[R]
	scheduler timer.Scheduler
	debounce  time.Duration
	locale    language.Tag

	fuzzy     bool
	keys      []string
	threshold float64
	builder   search.Builder[R]

	virtual        bool
	model          virtual.Model
	overscan       int
	container      float64
	scrollingDelay time.Duration

	fetcher  remote.Fetcher[R]
	pageSize int
	tokens   serversync.TokenGenerator

	capture  resize.Capture
	measurer resize.Measurer

	onActivate func(row R, index int)
}

func defaultConfig[R any]() config[R] {
	return config[R]{
		debounce:  DefaultDebounce,
		locale:    language.English,
		threshold: search.DefaultThreshold,
		model:     virtual.Model{RowHeight: DefaultRowHeight},
		overscan:  DefaultOverscan,
		pageSize:  remote.DefaultPageSize,
	}
}

// WithName sets the table id used in logs. The default is a UUIDv7.
func WithName[R any](name string) Option[R] {
	return func(c *config[R]) { c.name = name }
}

// WithState passes initial state overrides to table.NewState.
func WithState[R any](opts ...table.Option[R]) Option[R] {
	return func(c *config[R]) { c.state = append(c.state, opts...) }
}

// WithScheduler sets the scheduler for the filter debounce and scroll
// coalescing. Tests pass testutil.ManualScheduler.
func WithScheduler[R any](s timer.Scheduler) Option[R] {
	return func(c *config[R]) { c.scheduler = s }
}

// WithDebounce sets the filter debounce delay. Zero commits every keystroke.
func WithDebounce[R any](d time.Duration) Option[R] {
	return func(c *config[R]) { c.debounce = d }
}

// WithLocale sets the collation locale for sorting.
func WithLocale[R any](tag language.Tag) Option[R] {
	return func(c *config[R]) { c.locale = tag }
}

// WithFuzzy delegates filtering to a fuzzy index over keys (all columns
// when empty) with the given looseness threshold in [0, 1].
func WithFuzzy[R any](keys []string, threshold float64) Option[R] {
	return func(c *config[R]) {
		c.fuzzy = true
		c.keys = keys
		c.threshold = threshold
	}
}

// WithSearchBuilder replaces the fuzzy index implementation.
func WithSearchBuilder[R any](b search.Builder[R]) Option[R] {
	return func(c *config[R]) { c.builder = b }
}

// WithVirtual enables windowing with a row height model, overscan and an
// initial container height (0 means unmeasured).
func WithVirtual[R any](model virtual.Model, overscan int, containerHeight float64) Option[R] {
	return func(c *config[R]) {
		c.virtual = true
		c.model = model
		c.overscan = overscan
		c.container = containerHeight
	}
}

// WithScrollingDelay coalesces scroll events to one recompute per delay.
func WithScrollingDelay[R any](d time.Duration) Option[R] {
	return func(c *config[R]) { c.scrollingDelay = d }
}

// WithServer makes fetcher the ordering authority with the given page size.
func WithServer[R any](fetcher remote.Fetcher[R], pageSize int) Option[R] {
	return func(c *config[R]) {
		c.fetcher = fetcher
		c.pageSize = pageSize
	}
}

// WithTokens sets the fetch correlation token generator.
func WithTokens[R any](g serversync.TokenGenerator) Option[R] {
	return func(c *config[R]) { c.tokens = g }
}

// WithCapture sets the pointer capture acquired for each resize gesture.
func WithCapture[R any](cp resize.Capture) Option[R] {
	return func(c *config[R]) { c.capture = cp }
}

// WithMeasurer sets the rendered column width source read at resize start.
func WithMeasurer[R any](m resize.Measurer) Option[R] {
	return func(c *config[R]) { c.measurer = m }
}

// WithRowActivate sets the callback for ActivateRow.
func WithRowActivate[R any](fn func(row R, index int)) Option[R] {
	return func(c *config[R]) { c.onActivate = fn }
}

// SpecOptions converts declarative table options into Table options. The
// server fetcher is not part of a spec; callers add WithServer themselves.
func SpecOptions[R any](o table.SpecOptions) []Option[R] {
	var opts []Option[R]
	if o.ResizeMode != "" {
		opts = append(opts, WithState(table.WithResizeMode[R](o.ResizeMode)))
	}
	if o.DebounceMS > 0 {
		opts = append(opts, WithDebounce[R](time.Duration(o.DebounceMS)*time.Millisecond))
	}
	if o.Fuzzy.Enabled {
		opts = append(opts, WithFuzzy[R](o.Fuzzy.Keys, o.Fuzzy.Threshold))
	}
	if o.Virtual.Enabled {
		h := o.Virtual.RowHeight
		if h <= 0 {
			h = DefaultRowHeight
		}
		opts = append(opts, WithVirtual[R](virtual.Model{RowHeight: h}, o.Virtual.OverscanOr(DefaultOverscan), o.Virtual.ContainerHeight))
	}
	return opts
}
