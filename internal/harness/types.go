package harness

// TraceEvent records one applied step and the view it settled into.
type TraceEvent struct {
	Seq  int            `json:"seq"`
	Step string         `json:"step"`
	Args map[string]any `json:"args,omitempty"`

	// Sort is "<column> <dir>", empty when unsorted.
	Sort string `json:"sort,omitempty"`

	// Filter is the committed (debounced) filter value.
	Filter string `json:"filter,omitempty"`

	// Rows is the view length; Head holds the key values of its first rows.
	Rows int      `json:"rows"`
	Head []string `json:"head"`

	// Columns are the rendered column ids in render order.
	Columns []string `json:"columns"`

	// Widths are the explicit column sizes, omitted when none are set.
	Widths map[string]float64 `json:"widths,omitempty"`

	// Window is recorded for virtualized tables only.
	Window *WindowTrace `json:"window,omitempty"`

	// Page is recorded for server-paged tables only.
	Page int `json:"page,omitempty"`
}

// WindowTrace is the materialized row range.
type WindowTrace struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
