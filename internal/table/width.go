package table

import (
	"math"
	"strconv"
	"strings"
)

// ParseWidth parses "120", "120px" or "120.5". Malformed, non-finite or
// non-positive input returns ok=false and callers fall back to defaults.
func ParseWidth(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, false
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return 0, false
	}
	return w, true
}

// ClampWidth applies the MinColumnWidth floor.
func ClampWidth(w float64) float64 {
	if math.IsNaN(w) || w < MinColumnWidth {
		return MinColumnWidth
	}
	return w
}

// ColumnWidth resolves the effective width of col: an explicit entry in
// sizing, then the column's parsed initial width, then DefaultColumnWidth.
func ColumnWidth[R any](sizing map[string]float64, col Column[R]) float64 {
	if w, ok := sizing[col.ID]; ok {
		return w
	}
	if w, ok := ParseWidth(col.Width); ok {
		return ClampWidth(w)
	}
	return DefaultColumnWidth
}
