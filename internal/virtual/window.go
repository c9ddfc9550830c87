// Package virtual computes which rows of a long list are materialized.
//
// ComputeWindow is the pure range calculation for a uniform or per-index row
// height model. Virtualizer wraps it with the recompute triggers: scroll
// (optionally coalesced per frame), container resize, item count and height
// model changes, and retention of the last window while the container is
// unmeasured.
package virtual

import (
	"math"
	"sort"
)

// HeightFunc returns the height of row i.
type HeightFunc func(i int) float64

// Model is the row height model. Height, when set, overrides RowHeight.
type Model struct {
	RowHeight float64
	Height    HeightFunc
}

// Variable reports whether the model is per-index.
func (m Model) Variable() bool {
	return m.Height != nil
}

func (m Model) at(i int) float64 {
	if m.Height != nil {
		if h := m.Height(i); h > 0 {
			return h
		}
		return 0
	}
	return m.RowHeight
}

// Params are the inputs of one window computation.
type Params struct {
	Count           int
	Model           Model
	Overscan        int
	ContainerHeight float64
	ScrollOffset    float64

	// Disabled makes every row visible.
	Disabled bool
}

// Window is the materialized index range. Start and End are inclusive and
// satisfy 0 <= Start <= End <= max(0, Count-1). VisibleCount is 0 when there
// are no rows.
type Window struct {
	Start        int     `json:"start"`
	End          int     `json:"end"`
	VisibleCount int     `json:"visible_count"`
	ScrollOffset float64 `json:"scroll_offset"`
	TotalExtent  float64 `json:"total_extent"`
}

// Contains reports whether row i is materialized.
func (w Window) Contains(i int) bool {
	return w.VisibleCount > 0 && i >= w.Start && i <= w.End
}

// ComputeWindow returns the window for p. Negative offsets and overscan are
// treated as 0.
func ComputeWindow(p Params) Window {
	return computeWindow(p, nil)
}

// computeWindow uses prefix offsets when provided (len Count+1).
func computeWindow(p Params, prefix []float64) Window {
	if p.Count <= 0 {
		return Window{ScrollOffset: math.Max(p.ScrollOffset, 0)}
	}
	if p.Overscan < 0 {
		p.Overscan = 0
	}
	if p.ScrollOffset < 0 {
		p.ScrollOffset = 0
	}
	if p.Model.Variable() && prefix == nil {
		prefix = Prefix(p.Count, p.Model)
	}

	w := Window{ScrollOffset: p.ScrollOffset, TotalExtent: totalExtent(p, prefix)}
	switch {
	case p.Disabled:
		w.Start, w.End = 0, p.Count-1
	case p.Model.Variable():
		w.Start, w.End = variableRange(p, prefix)
	default:
		w.Start, w.End = uniformRange(p)
	}
	w.VisibleCount = w.End - w.Start + 1
	return w
}

func uniformRange(p Params) (int, int) {
	r := p.Model.RowHeight
	if r <= 0 {
		return 0, p.Count - 1
	}
	start := int(math.Floor(p.ScrollOffset/r)) - p.Overscan
	end := int(math.Ceil((p.ScrollOffset+p.ContainerHeight)/r)) + p.Overscan
	return clampRange(start, end, p.Count)
}

// variableRange finds the first row whose bottom edge passes the scroll
// offset, backs off by Overscan rows, then extends the end until the height
// accumulated from the start exceeds the container plus Overscan rows of the
// current end row's height.
func variableRange(p Params, prefix []float64) (int, int) {
	n := p.Count
	first := sort.Search(n, func(i int) bool { return prefix[i+1] > p.ScrollOffset })
	if first >= n {
		first = n - 1
	}
	start := first - p.Overscan
	if start < 0 {
		start = 0
	}

	end := start
	var sum float64
	for end < n {
		h := p.Model.at(end)
		sum += h
		if sum > p.ContainerHeight+float64(p.Overscan)*h {
			break
		}
		end++
	}
	return clampRange(start, end, n)
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n-1 {
		start = n - 1
	}
	if end > n-1 {
		end = n - 1
	}
	if end < start {
		end = start
	}
	return start, end
}

func totalExtent(p Params, prefix []float64) float64 {
	if p.Model.Variable() {
		return prefix[p.Count]
	}
	return float64(p.Count) * p.Model.RowHeight
}

// Prefix returns cumulative top offsets: prefix[i] is the top of row i and
// prefix[n] the total extent.
func Prefix(n int, m Model) []float64 {
	out := make([]float64, n+1)
	for i := 0; i < n; i++ {
		out[i+1] = out[i] + m.at(i)
	}
	return out
}

// Offset returns the top offset of row i under m.
func Offset(i int, m Model) float64 {
	if i <= 0 {
		return 0
	}
	if !m.Variable() {
		return float64(i) * m.RowHeight
	}
	var sum float64
	for j := 0; j < i; j++ {
		sum += m.at(j)
	}
	return sum
}
