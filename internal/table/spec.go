package table

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ColumnSpec is the serializable form of a column definition, as found in
// CUE table definitions, scenario files and CLI inputs.
type ColumnSpec struct {
	ID       string  `json:"id" yaml:"id"`
	Accessor string  `json:"accessor,omitempty" yaml:"accessor,omitempty"`
	Header   string  `json:"header,omitempty" yaml:"header,omitempty"`
	Sortable bool    `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	Pinned   PinSide `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Group    string  `json:"group,omitempty" yaml:"group,omitempty"`
	Width    string  `json:"width,omitempty" yaml:"width,omitempty"`
}

// AccessorKey returns Accessor, defaulting to ID.
func (c ColumnSpec) AccessorKey() string {
	if c.Accessor != "" {
		return c.Accessor
	}
	return c.ID
}

// Spec is a complete table definition.
type Spec struct {
	Name    string       `json:"name" yaml:"name"`
	Columns []ColumnSpec `json:"columns" yaml:"columns"`
	Options SpecOptions  `json:"options" yaml:"options"`
}

// SpecOptions are the per-table behaviour switches.
type SpecOptions struct {
	ResizeMode ResizeMode  `json:"resize_mode,omitempty" yaml:"resize_mode,omitempty"`
	DebounceMS int         `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`
	Fuzzy      FuzzySpec   `json:"fuzzy" yaml:"fuzzy"`
	Virtual    VirtualSpec `json:"virtual" yaml:"virtual"`
	Server     ServerSpec  `json:"server" yaml:"server"`
}

// FuzzySpec configures the search index.
type FuzzySpec struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Keys      []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
}

// VirtualSpec configures windowing.
type VirtualSpec struct {
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	RowHeight       float64 `json:"row_height" yaml:"row_height"`
	Overscan        *int    `json:"overscan,omitempty" yaml:"overscan,omitempty"`
	ContainerHeight float64 `json:"container_height,omitempty" yaml:"container_height,omitempty"`
}

// OverscanOr returns the declared overscan, or def when none was declared.
// An explicit 0 is kept.
func (v VirtualSpec) OverscanOr(def int) int {
	if v.Overscan == nil {
		return def
	}
	return *v.Overscan
}

// ServerSpec configures server-side pagination.
type ServerSpec struct {
	Enabled  bool `json:"enabled" yaml:"enabled"`
	PageSize int  `json:"page_size" yaml:"page_size"`
}

// RecordColumns binds specs to Record rows using Key accessors.
func RecordColumns(specs []ColumnSpec) []Column[Record] {
	cols := make([]Column[Record], len(specs))
	for i, s := range specs {
		cols[i] = Column[Record]{
			ID:          s.ID,
			AccessorKey: s.AccessorKey(),
			Accessor:    Key(s.AccessorKey()),
			Header:      s.Header,
			Sortable:    s.Sortable,
			Pinned:      s.Pinned,
			Group:       s.Group,
			Width:       s.Width,
		}
	}
	return cols
}

// StructColumns binds specs to struct rows, validating every accessor
// against R once.
func StructColumns[R any](specs []ColumnSpec) ([]Column[R], error) {
	cols := make([]Column[R], len(specs))
	for i, s := range specs {
		acc, err := StructField[R](s.AccessorKey())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", s.ID, err)
		}
		cols[i] = Column[R]{
			ID:          s.ID,
			AccessorKey: s.AccessorKey(),
			Accessor:    acc,
			Header:      s.Header,
			Sortable:    s.Sortable,
			Pinned:      s.Pinned,
			Group:       s.Group,
			Width:       s.Width,
		}
	}
	return cols, nil
}

// UnmarshalYAML accepts left, right, none, "" and the boolean false.
func (p *PinSide) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!bool" {
		if node.Value == "false" {
			*p = PinNone
			return nil
		}
		return fmt.Errorf("pinned: true is ambiguous, use left or right")
	}
	side, ok := ParsePinSide(node.Value)
	if !ok {
		return fmt.Errorf("pinned: unknown side %q", node.Value)
	}
	*p = side
	return nil
}

// UnmarshalJSON accepts the same forms as UnmarshalYAML.
func (p *PinSide) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			return fmt.Errorf("pinned: true is ambiguous, use left or right")
		}
		*p = PinNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("pinned: %w", err)
	}
	side, ok := ParsePinSide(s)
	if !ok {
		return fmt.Errorf("pinned: unknown side %q", s)
	}
	*p = side
	return nil
}
