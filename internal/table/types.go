package table

// Width floors and defaults, in pixels.
const (
	// MinColumnWidth is the floor for any width stored in ColumnSizing.
	MinColumnWidth = 50.0

	// MinDragWidth is the floor for the live preview width during a drag.
	MinDragWidth = 20.0

	// DefaultColumnWidth is used when a column has never been measured or sized.
	DefaultColumnWidth = 100.0
)

// SortDirection is the direction of the active sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is asc or desc.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Toggle returns the opposite direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// PinSide says which edge a column is pinned to. PinNone means unpinned.
type PinSide string

const (
	PinNone  PinSide = ""
	PinLeft  PinSide = "left"
	PinRight PinSide = "right"
)

// ParsePinSide accepts "left", "right", and "", "false" or "none" for unpinned.
func ParsePinSide(s string) (PinSide, bool) {
	switch s {
	case "left":
		return PinLeft, true
	case "right":
		return PinRight, true
	case "", "false", "none":
		return PinNone, true
	default:
		return PinNone, false
	}
}

// ResizeMode controls when a drag-resize writes into ColumnSizing.
type ResizeMode string

const (
	// ResizeOnChange writes every pointer move (live feedback).
	ResizeOnChange ResizeMode = "onChange"

	// ResizeOnResize buffers the width and writes once when the gesture ends.
	ResizeOnResize ResizeMode = "onResize"
)

// Valid reports whether m is a known mode.
func (m ResizeMode) Valid() bool {
	return m == ResizeOnChange || m == ResizeOnResize
}

// Pinned holds the ordered pinned column ids for each edge.
type Pinned struct {
	Left  []string `json:"left" yaml:"left"`
	Right []string `json:"right" yaml:"right"`
}

// Side returns where id is pinned, or PinNone.
func (p Pinned) Side(id string) PinSide {
	for _, c := range p.Left {
		if c == id {
			return PinLeft
		}
	}
	for _, c := range p.Right {
		if c == id {
			return PinRight
		}
	}
	return PinNone
}

// Clone returns a deep copy.
func (p Pinned) Clone() Pinned {
	return Pinned{
		Left:  cloneStrings(p.Left),
		Right: cloneStrings(p.Right),
	}
}

// State is the single authoritative snapshot of a table instance.
//
// Every field is owned by the snapshot: mutating code must Clone first.
// The state.Store enforces this for all writes.
type State[R any] struct {
	Data             []R                `json:"data"`
	SortColumn       string             `json:"sort_column"`
	SortDirection    SortDirection      `json:"sort_direction"`
	FilterValue      string             `json:"filter_value"`
	VisibleColumns   []string           `json:"visible_columns"`
	PinnedColumns    Pinned             `json:"pinned_columns"`
	ColumnSizing     map[string]float64 `json:"column_sizing"`
	ColumnResizeMode ResizeMode         `json:"column_resize_mode"`
	Loading          bool               `json:"loading"`

	// TotalRows is the remote row count when server sync is active, else 0.
	TotalRows int64 `json:"total_rows"`

	// FetchError is the last remote fetch failure, cleared by the next success.
	FetchError error `json:"-"`
}

// Clone returns a copy sharing no slices or maps with s. Rows themselves
// are copied by value into a fresh slice.
func (s State[R]) Clone() State[R] {
	out := s
	if s.Data != nil {
		out.Data = make([]R, len(s.Data))
		copy(out.Data, s.Data)
	}
	out.VisibleColumns = cloneStrings(s.VisibleColumns)
	out.PinnedColumns = s.PinnedColumns.Clone()
	if s.ColumnSizing != nil {
		out.ColumnSizing = make(map[string]float64, len(s.ColumnSizing))
		for k, v := range s.ColumnSizing {
			out.ColumnSizing[k] = v
		}
	}
	return out
}

// IsVisible reports whether id is in VisibleColumns.
func (s State[R]) IsVisible(id string) bool {
	for _, c := range s.VisibleColumns {
		if c == id {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
