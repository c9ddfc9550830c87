package virtual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/testutil"
)

func uniform(offset float64) Params {
	return Params{
		Count:           1000,
		Model:           Model{RowHeight: 48},
		Overscan:        5,
		ContainerHeight: 480,
		ScrollOffset:    offset,
	}
}

func TestComputeWindow_UniformTop(t *testing.T) {
	w := ComputeWindow(uniform(0))
	assert.Equal(t, 0, w.Start)
	assert.Equal(t, 15, w.End)
	assert.Equal(t, 16, w.VisibleCount)
	assert.Equal(t, 48000.0, w.TotalExtent)
}

func TestComputeWindow_UniformAligned(t *testing.T) {
	w := ComputeWindow(uniform(4800))
	assert.Equal(t, 95, w.Start)
	assert.Equal(t, 115, w.End)
}

func TestComputeWindow_ClampsAtEnd(t *testing.T) {
	w := ComputeWindow(uniform(1e9))
	assert.Equal(t, 999, w.End)
	assert.LessOrEqual(t, w.Start, w.End)
}

func TestComputeWindow_Invariants(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17, 1000} {
		for _, off := range []float64{-10, 0, 13, 480, 5000, 1e7} {
			p := uniform(off)
			p.Count = n
			w := ComputeWindow(p)
			assert.GreaterOrEqual(t, w.Start, 0)
			assert.LessOrEqual(t, w.Start, w.End)
			assert.LessOrEqual(t, w.End, max(0, n-1))
			if n == 0 {
				assert.Zero(t, w.VisibleCount)
			}
		}
	}
}

func TestComputeWindow_Variable(t *testing.T) {
	// even rows 20px, odd rows 40px
	h := func(i int) float64 {
		if i%2 == 0 {
			return 20
		}
		return 40
	}
	p := Params{Count: 100, Model: Model{Height: h}, Overscan: 1, ContainerHeight: 100, ScrollOffset: 65}
	w := ComputeWindow(p)

	// tops: 0,20,60,80,120,... row 2 spans 60..80 and is the first past 65
	assert.Equal(t, 1, w.Start)
	// from row 1: 40,60,100,120,160 first exceeds 100 plus one 40px row at row 5
	assert.Equal(t, 5, w.End)
	assert.Equal(t, 3000.0, w.TotalExtent)
}

func TestComputeWindow_VariableMatchesUniformExtent(t *testing.T) {
	p := uniform(0)
	p.Model = Model{Height: func(int) float64 { return 48 }}
	assert.Equal(t, 48000.0, ComputeWindow(p).TotalExtent)
}

func TestComputeWindow_Disabled(t *testing.T) {
	p := uniform(4800)
	p.Disabled = true
	w := ComputeWindow(p)
	assert.Equal(t, 0, w.Start)
	assert.Equal(t, 999, w.End)
	assert.Equal(t, 1000, w.VisibleCount)
	assert.Equal(t, 48000.0, w.TotalExtent)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 480.0, Offset(10, Model{RowHeight: 48}))
	assert.Equal(t, 60.0, Offset(2, Model{Height: func(i int) float64 { return float64(20 * (i + 1)) }}))
}

func TestVirtualizer_RetainsWindowWhileUnmeasured(t *testing.T) {
	v := New(1000, Options{Model: Model{RowHeight: 48}, Overscan: 5})
	assert.False(t, v.Measured())
	assert.Zero(t, v.Window().VisibleCount)

	v.SetContainerHeight(480)
	require.True(t, v.Measured())
	assert.Equal(t, 15, v.Window().End)

	v.SetContainerHeight(0)
	v.SetScrollOffset(4800)
	assert.Equal(t, 15, v.Window().End, "previous range kept at height 0")

	v.SetContainerHeight(480)
	assert.Equal(t, 95, v.Window().Start)
}

func TestVirtualizer_ScrollTo(t *testing.T) {
	v := New(1000, Options{Model: Model{RowHeight: 48}, Overscan: 5, ContainerHeight: 480})

	assert.Equal(t, 4800.0, v.ScrollTo(100))
	assert.Equal(t, 95, v.Window().Start)
	assert.Equal(t, 4800.0, v.Window().ScrollOffset)

	assert.Equal(t, 999*48.0, v.ScrollTo(5000))
}

func TestVirtualizer_CoalescesScroll(t *testing.T) {
	sched := testutil.NewManualScheduler()
	var changes []Window
	v := New(1000, Options{
		Model:           Model{RowHeight: 48},
		Overscan:        5,
		ContainerHeight: 480,
		ScrollingDelay:  16 * time.Millisecond,
		Scheduler:       sched,
		OnChange:        func(w Window) { changes = append(changes, w) },
	})
	require.Len(t, changes, 1)

	v.Scroll(100)
	v.Scroll(2000)
	v.Scroll(4800)
	assert.Equal(t, 0, v.Window().Start, "nothing applied before the frame")

	sched.Advance(16 * time.Millisecond)
	require.Len(t, changes, 2)
	assert.Equal(t, 95, changes[1].Start)
}

func TestVirtualizer_DispatchRunsRecompute(t *testing.T) {
	sched := testutil.NewManualScheduler()
	var queued []func()
	v := New(100, Options{
		Model:           Model{RowHeight: 10},
		ContainerHeight: 50,
		ScrollingDelay:  time.Millisecond,
		Scheduler:       sched,
		Dispatch:        func(f func()) { queued = append(queued, f) },
	})

	v.Scroll(500)
	sched.Advance(time.Millisecond)
	require.Len(t, queued, 1)
	assert.Equal(t, 0, v.Window().Start)

	queued[0]()
	assert.Equal(t, 50, v.Window().Start)
}

func TestVirtualizer_Items(t *testing.T) {
	v := New(10, Options{Model: Model{RowHeight: 30}, ContainerHeight: 60})
	items := v.Items()
	require.Len(t, items, 3)
	assert.Equal(t, Item{Index: 2, Top: 60, Height: 30}, items[2])

	v.SetCount(0)
	assert.Nil(t, v.Items())
	assert.Zero(t, v.TotalExtent())
}

func TestVirtualizer_VariableModel(t *testing.T) {
	v := New(4, Options{
		Model:           Model{Height: func(i int) float64 { return float64(10 * (i + 1)) }},
		ContainerHeight: 1000,
	})
	assert.Equal(t, 100.0, v.TotalExtent())
	assert.Equal(t, 30.0, v.Offset(2))
	assert.Equal(t, 3, v.Window().End)
}

func TestVirtualizer_SetCountClampsOffset(t *testing.T) {
	v := New(100, Options{Model: Model{RowHeight: 10}, ContainerHeight: 50})
	v.SetScrollOffset(900)
	require.Equal(t, 90, v.Window().Start)

	v.SetCount(20)
	w := v.Window()
	assert.Equal(t, 150.0, w.ScrollOffset)
	assert.Equal(t, 15, w.Start)
	assert.Equal(t, 19, w.End)
	assert.Equal(t, 5, w.VisibleCount)

	v.SetCount(3)
	w = v.Window()
	assert.Equal(t, 0.0, w.ScrollOffset, "content shorter than the viewport")
	assert.Equal(t, 0, w.Start)
	assert.Equal(t, 2, w.End)
}

func TestVirtualizer_ShrinkWhileUnmeasuredClampsOnMeasure(t *testing.T) {
	v := New(100, Options{Model: Model{RowHeight: 10}})
	v.SetScrollOffset(900)
	v.SetCount(20)
	assert.False(t, v.Measured())

	v.SetContainerHeight(50)
	w := v.Window()
	assert.Equal(t, 150.0, w.ScrollOffset)
	assert.Equal(t, 15, w.Start)
	assert.Equal(t, 19, w.End)
}
