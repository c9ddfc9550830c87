package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// marshalColumns converts a column list to JSON TEXT for the registry.
func marshalColumns(cols []string) (string, error) {
	if cols == nil {
		cols = []string{}
	}
	data, err := json.Marshal(cols)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

// unmarshalColumns parses a registry column list.
func unmarshalColumns(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var cols []string
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	return cols, nil
}

// toParam converts a record value to an SQLite parameter. Scalars are
// stored natively; maps and slices are stored as JSON TEXT.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte, time.Time:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("convert number %q: %w", val, err)
		}
		return f, nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return nil, fmt.Errorf("convert value of type %T: %w", v, err)
		}
		// Encoder adds a trailing newline, remove it
		return strings.TrimSpace(buf.String()), nil
	}
}

// fromColumn normalizes a scanned SQLite value for a record.
func fromColumn(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
