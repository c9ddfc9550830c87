package table

// Option customizes a freshly created State.
type Option[R any] func(*State[R])

// WithSort sets the initial sort.
func WithSort[R any](column string, dir SortDirection) Option[R] {
	return func(s *State[R]) {
		s.SortColumn = column
		if dir.Valid() {
			s.SortDirection = dir
		}
	}
}

// WithFilter sets the initial filter value.
func WithFilter[R any](value string) Option[R] {
	return func(s *State[R]) {
		s.FilterValue = value
	}
}

// WithVisibleColumns replaces the default all-visible set.
func WithVisibleColumns[R any](ids ...string) Option[R] {
	return func(s *State[R]) {
		s.VisibleColumns = cloneStrings(ids)
	}
}

// WithPinned replaces the pins derived from column definitions.
func WithPinned[R any](p Pinned) Option[R] {
	return func(s *State[R]) {
		s.PinnedColumns = p.Clone()
	}
}

// WithColumnSizing merges explicit widths over the defaults.
func WithColumnSizing[R any](sizing map[string]float64) Option[R] {
	return func(s *State[R]) {
		for k, v := range sizing {
			s.ColumnSizing[k] = ClampWidth(v)
		}
	}
}

// WithResizeMode sets the resize write policy.
func WithResizeMode[R any](mode ResizeMode) Option[R] {
	return func(s *State[R]) {
		if mode.Valid() {
			s.ColumnResizeMode = mode
		}
	}
}

// WithLoading sets the initial loading flag.
func WithLoading[R any](loading bool) Option[R] {
	return func(s *State[R]) {
		s.Loading = loading
	}
}

// NewState builds the initial snapshot for a table instance. Sizes come from
// Column.Width, pins from Column.Pinned in definition order, and every
// column starts visible.
func NewState[R any](data []R, columns []Column[R], opts ...Option[R]) State[R] {
	s := State[R]{
		Data:             data,
		SortDirection:    SortAsc,
		VisibleColumns:   ColumnIDs(columns),
		ColumnSizing:     make(map[string]float64),
		ColumnResizeMode: ResizeOnChange,
	}
	if s.Data == nil {
		s.Data = []R{}
	}

	for _, c := range columns {
		if w, ok := ParseWidth(c.Width); ok {
			s.ColumnSizing[c.ID] = ClampWidth(w)
		}
		switch c.Pinned {
		case PinLeft:
			s.PinnedColumns.Left = append(s.PinnedColumns.Left, c.ID)
		case PinRight:
			s.PinnedColumns.Right = append(s.PinnedColumns.Right, c.ID)
		}
	}

	for _, opt := range opts {
		opt(&s)
	}
	return s
}
