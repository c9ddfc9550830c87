package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// Validation error codes (E100-E199)
const (
	// Table errors (E100-E104)
	ErrTableNameEmpty  = "E100" // table name is required
	ErrNoColumns       = "E101" // at least one column required
	ErrColumnIDEmpty   = "E102" // column id is required
	ErrInvalidColumnID = "E103" // column id has invalid characters
	ErrDuplicateID     = "E104" // duplicate column id

	// Column errors (E110-E119)
	ErrInvalidWidth   = "E110" // width is not a positive number
	ErrInvalidPinSide = "E111" // pinned must be left or right

	// Option errors (E120-E129)
	ErrInvalidResizeMode = "E120" // resize_mode must be onChange or onResize
	ErrInvalidDebounce   = "E121" // debounce_ms must be >= 0
	ErrUnknownFuzzyKey   = "E122" // fuzzy key names no column
	ErrInvalidThreshold  = "E123" // threshold outside [0, 1]
	ErrInvalidRowHeight  = "E124" // virtual row_height must be > 0
	ErrInvalidOverscan   = "E125" // overscan must be >= 0
	ErrInvalidPageSize   = "E126" // page_size outside [0, MaxPageSize]
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// columnIDPattern matches identifiers usable as column ids and SQL column
// names.
var columnIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Validate checks a compiled table spec. Returns all errors found (does
// not fail-fast).
func Validate(spec *table.Spec) []ValidationError {
	var errs []ValidationError

	// E100: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "table name is required",
			Code:    ErrTableNameEmpty,
		})
	}

	// E101: at least one column
	if len(spec.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: "at least one column is required",
			Code:    ErrNoColumns,
		})
	}

	ids := make(map[string]bool, len(spec.Columns))
	for i, col := range spec.Columns {
		errs = append(errs, validateColumn(col, i, ids)...)
		ids[col.ID] = true
	}

	errs = append(errs, validateOptions(spec.Options, ids)...)
	return errs
}

func validateColumn(col table.ColumnSpec, i int, seen map[string]bool) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("columns[%d]", i)

	switch {
	case strings.TrimSpace(col.ID) == "":
		errs = append(errs, ValidationError{
			Field:   field + ".id",
			Message: "column id is required",
			Code:    ErrColumnIDEmpty,
		})
	case !columnIDPattern.MatchString(col.ID):
		errs = append(errs, ValidationError{
			Field:   field + ".id",
			Message: fmt.Sprintf("invalid column id %q", col.ID),
			Code:    ErrInvalidColumnID,
		})
	case seen[col.ID]:
		errs = append(errs, ValidationError{
			Field:   field + ".id",
			Message: fmt.Sprintf("duplicate column id: %q", col.ID),
			Code:    ErrDuplicateID,
		})
	}

	// E110: a width that is present must parse
	if col.Width != "" {
		if _, ok := table.ParseWidth(col.Width); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".width",
				Message: fmt.Sprintf("invalid width %q, expected a positive number with optional px", col.Width),
				Code:    ErrInvalidWidth,
			})
		}
	}

	// E111: pin side
	if col.Pinned != table.PinNone && col.Pinned != table.PinLeft && col.Pinned != table.PinRight {
		errs = append(errs, ValidationError{
			Field:   field + ".pinned",
			Message: fmt.Sprintf("invalid pin side %q, must be \"left\" or \"right\"", col.Pinned),
			Code:    ErrInvalidPinSide,
		})
	}

	return errs
}

func validateOptions(opts table.SpecOptions, ids map[string]bool) []ValidationError {
	var errs []ValidationError

	if opts.ResizeMode != "" && !opts.ResizeMode.Valid() {
		errs = append(errs, ValidationError{
			Field:   "options.resize_mode",
			Message: fmt.Sprintf("invalid resize mode %q, must be %q or %q", opts.ResizeMode, table.ResizeOnChange, table.ResizeOnResize),
			Code:    ErrInvalidResizeMode,
		})
	}

	if opts.DebounceMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "options.debounce_ms",
			Message: "debounce_ms must be >= 0",
			Code:    ErrInvalidDebounce,
		})
	}

	for i, key := range opts.Fuzzy.Keys {
		if !ids[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options.fuzzy.keys[%d]", i),
				Message: fmt.Sprintf("fuzzy key %q names no column", key),
				Code:    ErrUnknownFuzzyKey,
			})
		}
	}

	if opts.Fuzzy.Threshold < 0 || opts.Fuzzy.Threshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "options.fuzzy.threshold",
			Message: fmt.Sprintf("threshold %g outside [0, 1]", opts.Fuzzy.Threshold),
			Code:    ErrInvalidThreshold,
		})
	}

	if opts.Virtual.Enabled && opts.Virtual.RowHeight <= 0 {
		errs = append(errs, ValidationError{
			Field:   "options.virtual.row_height",
			Message: "row_height must be > 0 when virtualization is enabled",
			Code:    ErrInvalidRowHeight,
		})
	}

	if opts.Virtual.Overscan != nil && *opts.Virtual.Overscan < 0 {
		errs = append(errs, ValidationError{
			Field:   "options.virtual.overscan",
			Message: "overscan must be >= 0",
			Code:    ErrInvalidOverscan,
		})
	}

	if opts.Server.PageSize < 0 || opts.Server.PageSize > remote.MaxPageSize {
		errs = append(errs, ValidationError{
			Field:   "options.server.page_size",
			Message: fmt.Sprintf("page_size %d outside [0, %d]", opts.Server.PageSize, remote.MaxPageSize),
			Code:    ErrInvalidPageSize,
		})
	}

	return errs
}
