package resize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
)

type countingCapture struct {
	acquired int
	released int
}

func (c *countingCapture) Acquire() func() {
	c.acquired++
	return func() { c.released++ }
}

func newStore(mode table.ResizeMode) *state.Store[table.Record] {
	cols := table.RecordColumns([]table.ColumnSpec{
		{ID: "name", Width: "150"},
		{ID: "city"},
	})
	return state.New([]table.Record{{"name": "a"}}, cols, table.WithResizeMode[table.Record](mode))
}

func TestStart_SeedsUnsizedColumn(t *testing.T) {
	store := newStore(table.ResizeOnChange)
	c := NewController(store)

	_, sized := store.Snapshot().ColumnSizing["city"]
	require.False(t, sized)

	require.NoError(t, c.Start("city", 10))
	assert.Equal(t, 100.0, store.Snapshot().ColumnSizing["city"])

	s, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, 100.0, s.WidthAtStart)
}

func TestStart_PrefersMeasuredWidth(t *testing.T) {
	store := newStore(table.ResizeOnChange)
	c := NewController(store, WithMeasurer(func(id string) (float64, bool) {
		return 180, id == "city"
	}))

	require.NoError(t, c.Start("city", 0))
	s, _ := c.Session()
	assert.Equal(t, 180.0, s.WidthAtStart)
	assert.Equal(t, 180.0, store.Snapshot().ColumnSizing["city"])
}

func TestStart_SecondSessionRejected(t *testing.T) {
	store := newStore(table.ResizeOnChange)
	capture := &countingCapture{}
	c := NewController(store, WithCapture(capture))

	require.NoError(t, c.Start("name", 0))
	err := c.Start("city", 0)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, 1, capture.acquired)

	s, _ := c.Session()
	assert.Equal(t, "name", s.ColumnID)
}

func TestStart_UnknownColumn(t *testing.T) {
	c := NewController(newStore(table.ResizeOnChange))
	assert.ErrorIs(t, c.Start("missing", 0), ErrUnknownColumn)
	assert.False(t, c.Active())
}

func TestMove_OnChangeWritesLive(t *testing.T) {
	store := newStore(table.ResizeOnChange)
	c := NewController(store)
	require.NoError(t, c.Start("name", 100))

	w, err := c.Move(130)
	require.NoError(t, err)
	assert.Equal(t, 180.0, w)
	assert.Equal(t, 180.0, store.Snapshot().ColumnSizing["name"])

	s, _ := c.Session()
	assert.Equal(t, 30.0, s.DeltaX)
	assert.Equal(t, 130.0, s.CurrentX)
}

func TestMove_OnResizeBuffersUntilEnd(t *testing.T) {
	store := newStore(table.ResizeOnResize)
	c := NewController(store)
	require.NoError(t, c.Start("name", 100))

	_, err := c.Move(160)
	require.NoError(t, err)
	assert.Equal(t, 150.0, store.Snapshot().ColumnSizing["name"], "not written before End")

	w, err := c.End()
	require.NoError(t, err)
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 210.0, store.Snapshot().ColumnSizing["name"])
}

func TestMove_WidthNeverBelowFloor(t *testing.T) {
	for _, mode := range []table.ResizeMode{table.ResizeOnChange, table.ResizeOnResize} {
		store := newStore(mode)
		c := NewController(store)
		require.NoError(t, c.Start("name", 500))

		for _, x := range []float64{400, 0, -1e6} {
			w, err := c.Move(x)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, w, table.MinColumnWidth)
		}
		s, _ := c.Session()
		assert.Equal(t, table.MinDragWidth, s.Preview)

		_, err := c.End()
		require.NoError(t, err)
		assert.Equal(t, table.MinColumnWidth, store.Snapshot().ColumnSizing["name"], "mode %s", mode)
	}
}

func TestEnd_ReleasesCaptureOnce(t *testing.T) {
	capture := &countingCapture{}
	c := NewController(newStore(table.ResizeOnChange), WithCapture(capture))

	require.NoError(t, c.Start("name", 0))
	_, err := c.End()
	require.NoError(t, err)
	_, err = c.End()
	assert.ErrorIs(t, err, ErrNoSession)
	c.Cancel()

	assert.Equal(t, 1, capture.acquired)
	assert.Equal(t, 1, capture.released)
	assert.False(t, c.Active())
}

func TestMove_IdleReturnsErrNoSession(t *testing.T) {
	c := NewController(newStore(table.ResizeOnChange))
	_, err := c.Move(10)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCancel_OnChangeRollsBack(t *testing.T) {
	store := newStore(table.ResizeOnChange)
	capture := &countingCapture{}
	c := NewController(store, WithCapture(capture))

	require.NoError(t, c.Start("name", 0))
	_, _ = c.Move(90)
	assert.Equal(t, 240.0, store.Snapshot().ColumnSizing["name"])

	c.Cancel()
	assert.Equal(t, 150.0, store.Snapshot().ColumnSizing["name"])
	assert.Equal(t, 1, capture.released)
	assert.False(t, c.Active())
}

func TestCancel_OnResizeDiscardsBuffer(t *testing.T) {
	store := newStore(table.ResizeOnResize)
	c := NewController(store)

	require.NoError(t, c.Start("name", 0))
	_, _ = c.Move(90)
	c.Cancel()
	assert.Equal(t, 150.0, store.Snapshot().ColumnSizing["name"])

	// a new session can start after cancel
	require.NoError(t, c.Start("city", 0))
}
