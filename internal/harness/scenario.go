package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tablegrid/internal/table"
)

// Scenario defines a conformance test scenario.
// Scenarios replay a sequence of UI events against one table and assert on
// the resulting view.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is an optional CUE file holding table definitions, relative to
	// the scenario file. Table picks one of them by name.
	Spec  string `yaml:"spec,omitempty"`
	Table string `yaml:"table,omitempty"`

	// Columns and Options define the table inline when Spec is empty.
	Columns []table.ColumnSpec `yaml:"columns,omitempty"`
	Options table.SpecOptions  `yaml:"options,omitempty"`

	// Rows is the initial row collection. GenerateRows appends n synthetic
	// rows {id: i, name: "row-0000"} for windowing scenarios.
	Rows         []table.Record `yaml:"rows,omitempty"`
	GenerateRows int            `yaml:"generate_rows,omitempty"`

	// Tokens are the fetch correlation tokens handed out in order.
	Tokens []string `yaml:"tokens,omitempty"`

	// Steps are applied in order; each settles before the next.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one UI event. Exactly one field must be set.
type Step struct {
	Sort      string        `yaml:"sort,omitempty"`
	ClearSort bool          `yaml:"clear_sort,omitempty"`
	Filter    *string       `yaml:"filter,omitempty"`
	Flush     bool          `yaml:"flush,omitempty"`
	Advance   time.Duration `yaml:"advance,omitempty"`
	Resize    *ResizeStep   `yaml:"resize,omitempty"`
	Pin       *PinStep      `yaml:"pin,omitempty"`
	Toggle    string        `yaml:"visibility,omitempty"`
	Scroll    *float64      `yaml:"scroll,omitempty"`
	ScrollTo  *int          `yaml:"scroll_to,omitempty"`
	Container *float64      `yaml:"container_height,omitempty"`
	Page      int           `yaml:"page,omitempty"`
	Reset     bool          `yaml:"reset,omitempty"`
}

// ResizeStep is a complete drag gesture: start at From, move through Moves,
// then end (or cancel).
type ResizeStep struct {
	Column string    `yaml:"column"`
	From   float64   `yaml:"from"`
	Moves  []float64 `yaml:"moves"`
	Cancel bool      `yaml:"cancel,omitempty"`
}

// PinStep pins Column to Side ("left", "right" or "none").
type PinStep struct {
	Column string `yaml:"column"`
	Side   string `yaml:"side"`
}

// Step kinds, as recorded in traces.
const (
	StepSort      = "sort"
	StepClearSort = "clear_sort"
	StepFilter    = "filter"
	StepFlush     = "flush"
	StepAdvance   = "advance"
	StepResize    = "resize"
	StepPin       = "pin"
	StepToggle    = "visibility"
	StepScroll    = "scroll"
	StepScrollTo  = "scroll_to"
	StepContainer = "container_height"
	StepPage      = "page"
	StepReset     = "reset"
)

// Kinds returns the kinds of every field set on s.
func (s Step) Kinds() []string {
	var kinds []string
	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}
	add(s.Sort != "", StepSort)
	add(s.ClearSort, StepClearSort)
	add(s.Filter != nil, StepFilter)
	add(s.Flush, StepFlush)
	add(s.Advance != 0, StepAdvance)
	add(s.Resize != nil, StepResize)
	add(s.Pin != nil, StepPin)
	add(s.Toggle != "", StepToggle)
	add(s.Scroll != nil, StepScroll)
	add(s.ScrollTo != nil, StepScrollTo)
	add(s.Container != nil, StepContainer)
	add(s.Page != 0, StepPage)
	add(s.Reset, StepReset)
	return kinds
}

// Kind returns the step kind, or "" when zero or several fields are set.
func (s Step) Kind() string {
	if kinds := s.Kinds(); len(kinds) == 1 {
		return kinds[0]
	}
	return ""
}

// Assertion validates the final view.
type Assertion struct {
	// Type specifies the assertion type:
	// - "view_order": Column values of the view rows, in order
	// - "row_count": number of rows in the view
	// - "window": materialized Start and End indexes
	// - "width": effective width of Column
	// - "column_order": rendered column ids, in order
	// - "pinned": left and right pin lists
	Type string `yaml:"type"`

	// Column is the row field read by view_order (default: first column)
	// or the column measured by width.
	Column string `yaml:"column,omitempty"`

	// Expect is the ordered value list for view_order and column_order.
	Expect []string `yaml:"expect,omitempty"`

	// Count is the expected row count (used by row_count).
	Count *int `yaml:"count,omitempty"`

	// Start and End are the expected window bounds (used by window).
	Start *int `yaml:"start,omitempty"`
	End   *int `yaml:"end,omitempty"`

	// Width is the expected effective width (used by width).
	Width float64 `yaml:"width,omitempty"`

	// Left and Right are the expected pin lists (used by pinned).
	Left  []string `yaml:"left,omitempty"`
	Right []string `yaml:"right,omitempty"`
}

// Assertion type constants.
const (
	AssertViewOrder   = "view_order"
	AssertRowCount    = "row_count"
	AssertWindow      = "window"
	AssertWidth       = "width"
	AssertColumnOrder = "column_order"
	AssertPinned      = "pinned"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Spec path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
	}
	if scenario.Spec != "" {
		if _, err := os.Stat(scenario.Spec); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", scenario.Spec)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Spec != "" && len(s.Columns) > 0:
		return fmt.Errorf("spec and columns are mutually exclusive")
	case s.Spec != "" && s.Table == "":
		return fmt.Errorf("table is required with spec")
	case s.Spec == "" && len(s.Columns) == 0:
		return fmt.Errorf("columns list is required and must be non-empty")
	}
	if s.GenerateRows < 0 {
		return fmt.Errorf("generate_rows must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	kinds := s.Kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: empty step", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: one event per step, got %v", index, kinds)
	}

	switch {
	case s.Advance < 0:
		return fmt.Errorf("steps[%d]: advance must be positive", index)
	case s.Resize != nil && s.Resize.Column == "":
		return fmt.Errorf("steps[%d]: resize.column is required", index)
	case s.Pin != nil && s.Pin.Column == "":
		return fmt.Errorf("steps[%d]: pin.column is required", index)
	case s.Page < 0:
		return fmt.Errorf("steps[%d]: page must be positive", index)
	}
	if s.Pin != nil {
		if _, ok := table.ParsePinSide(s.Pin.Side); !ok {
			return fmt.Errorf("steps[%d]: unknown pin side %q", index, s.Pin.Side)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertViewOrder:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for view_order", index)
		}
	case AssertRowCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for row_count", index)
		}
	case AssertWindow:
		if a.Start == nil || a.End == nil {
			return fmt.Errorf("assertions[%d]: start and end are required for window", index)
		}
	case AssertWidth:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for width", index)
		}
		if a.Width <= 0 {
			return fmt.Errorf("assertions[%d]: positive width is required for width", index)
		}
	case AssertColumnOrder:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for column_order", index)
		}
	case AssertPinned:
		// Empty lists assert nothing is pinned.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
