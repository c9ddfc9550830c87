package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tablegrid/internal/table"
)

// CompileTables compiles every definition under the top-level "table"
// field, in declaration order. A root without a "table" field yields no
// specs.
func CompileTables(root cue.Value) ([]table.Spec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	tablesVal := root.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []table.Spec
	for iter.Next() {
		spec, err := CompileTable(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileTable parses a CUE value into a table.Spec.
//
// The value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: people: { columns: [...] }`)
//	spec, err := CompileTable(v.LookupPath(cue.ParsePath("table.people")))
func CompileTable(v cue.Value) (*table.Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &table.Spec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{
			Field:   "columns",
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	colIter, err := colsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; colIter.Next(); i++ {
		col, err := parseColumn(colIter.Value(), i)
		if err != nil {
			return nil, err
		}
		spec.Columns = append(spec.Columns, col)
	}
	if len(spec.Columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     colsVal.Pos(),
		}
	}

	optsVal := v.LookupPath(cue.ParsePath("options"))
	if optsVal.Exists() {
		spec.Options, err = parseOptions(optsVal)
		if err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// parseColumn parses one entry of the columns list.
func parseColumn(v cue.Value, i int) (table.ColumnSpec, error) {
	var col table.ColumnSpec
	field := fmt.Sprintf("columns[%d]", i)

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return col, &CompileError{
			Field:   field + ".id",
			Message: "column id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return col, formatCUEError(err)
	}
	col.ID = id

	if col.Accessor, err = optString(v, "accessor"); err != nil {
		return col, err
	}
	if col.Header, err = optString(v, "header"); err != nil {
		return col, err
	}
	if col.Group, err = optString(v, "group"); err != nil {
		return col, err
	}
	if col.Sortable, err = optBool(v, "sortable"); err != nil {
		return col, err
	}

	// pinned: "left" | "right" | "" | false
	pinVal := v.LookupPath(cue.ParsePath("pinned"))
	if pinVal.Exists() {
		if b, err := pinVal.Bool(); err == nil {
			if b {
				return col, &CompileError{
					Field:   field + ".pinned",
					Message: "pinned: true is ambiguous, use \"left\" or \"right\"",
					Pos:     pinVal.Pos(),
				}
			}
		} else {
			s, err := pinVal.String()
			if err != nil {
				return col, formatCUEError(err)
			}
			side, ok := table.ParsePinSide(s)
			if !ok {
				return col, &CompileError{
					Field:   field + ".pinned",
					Message: fmt.Sprintf("unknown pin side %q", s),
					Pos:     pinVal.Pos(),
				}
			}
			col.Pinned = side
		}
	}

	// width: "120" | "120px" | 120
	widthVal := v.LookupPath(cue.ParsePath("width"))
	if widthVal.Exists() {
		switch widthVal.IncompleteKind() {
		case cue.IntKind:
			n, err := widthVal.Int64()
			if err != nil {
				return col, formatCUEError(err)
			}
			col.Width = strconv.FormatInt(n, 10)
		case cue.StringKind:
			s, err := widthVal.String()
			if err != nil {
				return col, formatCUEError(err)
			}
			col.Width = s
		default:
			return col, &CompileError{
				Field:   field + ".width",
				Message: fmt.Sprintf("width must be an int or string, got %v", widthVal.IncompleteKind()),
				Pos:     widthVal.Pos(),
			}
		}
	}

	return col, nil
}

// parseOptions parses the options struct. Absent fields keep zero values;
// defaults are applied by the consumer.
func parseOptions(v cue.Value) (table.SpecOptions, error) {
	var opts table.SpecOptions

	mode, err := optString(v, "resize_mode")
	if err != nil {
		return opts, err
	}
	opts.ResizeMode = table.ResizeMode(mode)

	debounce, err := optInt(v, "debounce_ms")
	if err != nil {
		return opts, err
	}
	opts.DebounceMS = int(debounce)

	if fv := v.LookupPath(cue.ParsePath("fuzzy")); fv.Exists() {
		if opts.Fuzzy.Enabled, err = optBool(fv, "enabled"); err != nil {
			return opts, err
		}
		if opts.Fuzzy.Keys, err = optStrings(fv, "keys"); err != nil {
			return opts, err
		}
		if opts.Fuzzy.Threshold, err = optFloat(fv, "threshold"); err != nil {
			return opts, err
		}
	}

	if vv := v.LookupPath(cue.ParsePath("virtual")); vv.Exists() {
		if opts.Virtual.Enabled, err = optBool(vv, "enabled"); err != nil {
			return opts, err
		}
		if opts.Virtual.RowHeight, err = optFloat(vv, "row_height"); err != nil {
			return opts, err
		}
		if ov := vv.LookupPath(cue.ParsePath("overscan")); ov.Exists() {
			n, err := ov.Int64()
			if err != nil {
				return opts, formatCUEError(err)
			}
			overscan := int(n)
			opts.Virtual.Overscan = &overscan
		}
		if opts.Virtual.ContainerHeight, err = optFloat(vv, "container_height"); err != nil {
			return opts, err
		}
	}

	if sv := v.LookupPath(cue.ParsePath("server")); sv.Exists() {
		if opts.Server.Enabled, err = optBool(sv, "enabled"); err != nil {
			return opts, err
		}
		size, err := optInt(sv, "page_size")
		if err != nil {
			return opts, err
		}
		opts.Server.PageSize = int(size)
	}

	return opts, nil
}

func optString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optBool(v cue.Value, path string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optInt(v cue.Value, path string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optFloat(v cue.Value, path string) (float64, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optStrings(v cue.Value, path string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
