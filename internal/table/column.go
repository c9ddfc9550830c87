package table

import (
	"fmt"
	"reflect"
	"strings"
)

// Accessor reads one field from a row. The bool is false when the field is
// absent, which is distinct from a present nil.
type Accessor[R any] func(row R) (any, bool)

// Column is a column definition bound to a row type.
type Column[R any] struct {
	ID          string
	AccessorKey string
	Accessor    Accessor[R]
	Header      string
	Sortable    bool
	Pinned      PinSide
	Group       string

	// Width is the optional initial size ("120", "120px"). Malformed values
	// are ignored and the column falls back to DefaultColumnWidth.
	Width string
}

// Value returns the raw accessor value for row.
func (c Column[R]) Value(row R) (any, bool) {
	if c.Accessor == nil {
		return nil, false
	}
	return c.Accessor(row)
}

// Text returns the string-coerced value for row. ok is false for absent or
// nil values, which never match a filter.
func (c Column[R]) Text(row R) (string, bool) {
	v, ok := c.Value(row)
	if !ok {
		return "", false
	}
	return Stringify(v)
}

// FindColumn looks up a column by id.
func FindColumn[R any](cols []Column[R], id string) (Column[R], bool) {
	for _, c := range cols {
		if c.ID == id {
			return c, true
		}
	}
	return Column[R]{}, false
}

// ColumnIDs returns ids in definition order.
func ColumnIDs[R any](cols []Column[R]) []string {
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return ids
}

// Record is the dynamic row type used by file-, SQL- and HTTP-backed tables.
type Record map[string]any

// Key returns an accessor for a Record. Dotted paths ("address.city")
// descend into nested maps.
func Key(path string) Accessor[Record] {
	parts := strings.Split(path, ".")
	return func(r Record) (any, bool) {
		var cur any = map[string]any(r)
		for _, p := range parts {
			m, ok := asMap(cur)
			if !ok {
				return nil, false
			}
			cur, ok = m[p]
			if !ok {
				return nil, false
			}
		}
		return cur, true
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

// StructField resolves an exported field of struct type R (or *struct) by
// Go name or json tag. Resolution happens once; the returned accessor only
// indexes.
func StructField[R any](name string) (Accessor[R], error) {
	t := reflect.TypeOf((*R)(nil)).Elem()
	isPtr := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		isPtr = true
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("struct field %q: row type %s is not a struct", name, t)
	}

	index, ok := findField(t, name)
	if !ok {
		return nil, fmt.Errorf("struct field %q: not found on %s", name, t)
	}

	return func(row R) (any, bool) {
		v := reflect.ValueOf(row)
		if isPtr {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		f, err := v.FieldByIndexErr(index)
		if err != nil {
			return nil, false
		}
		return f.Interface(), true
	}, nil
}

func findField(t reflect.Type, name string) ([]int, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name {
			return f.Index, true
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag != "" && tag == name {
			return f.Index, true
		}
	}
	return nil, false
}
