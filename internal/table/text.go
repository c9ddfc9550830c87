package table

import (
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s NFC-normalized and Unicode case-folded, the form used for
// every case-insensitive comparison (filter terms, search corpus).
//
// A Caser is stateful, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Stringify coerces an accessor value to its display string. ok is false for
// nil, which never matches a filter term.
func Stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	case fmt.Stringer:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprint(val), true
	}
}
