package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/table"
)

func testColumns() []table.Column[table.Record] {
	return table.RecordColumns([]table.ColumnSpec{
		{ID: "id", Width: "60"},
		{ID: "name", Sortable: true, Pinned: table.PinLeft},
		{ID: "email", Sortable: true},
	})
}

func testRows() []table.Record {
	return []table.Record{
		{"id": 1, "name": "Ada"},
		{"id": 2, "name": "Grace"},
	}
}

func TestNew_DefaultsFromColumns(t *testing.T) {
	s := New(testRows(), testColumns())
	snap := s.Snapshot()

	assert.Len(t, snap.Data, 2)
	assert.Equal(t, []string{"id", "name", "email"}, snap.VisibleColumns)
	assert.Equal(t, []string{"name"}, snap.PinnedColumns.Left)
	assert.Equal(t, 60.0, snap.ColumnSizing["id"])
	assert.Equal(t, int64(1), s.Version())
	assert.Equal(t, int64(1), s.DataVersion())
}

func TestUpdate_NotifiesWithNewSnapshot(t *testing.T) {
	s := New(testRows(), testColumns())

	var got []table.State[table.Record]
	s.Subscribe(func(snap table.State[table.Record]) {
		got = append(got, snap)
	})

	out := s.Update(Patch[table.Record]{
		SortColumn:    Ptr("name"),
		SortDirection: Ptr(table.SortDesc),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "name", got[0].SortColumn)
	assert.Equal(t, table.SortDesc, got[0].SortDirection)
	assert.Equal(t, out.SortColumn, s.Snapshot().SortColumn)
	assert.Equal(t, int64(2), s.Version())
	assert.Equal(t, int64(1), s.DataVersion(), "sort does not replace data")
}

func TestUpdate_DataBumpsDataVersion(t *testing.T) {
	s := New(testRows(), testColumns())
	rows := []table.Record{{"id": 3}}

	s.Update(Patch[table.Record]{Data: &rows})
	assert.Equal(t, int64(2), s.DataVersion())
	assert.Len(t, s.Snapshot().Data, 1)

	s.UpdateFunc(func(st table.State[table.Record]) table.State[table.Record] {
		st.FilterValue = "x"
		return st
	})
	assert.Equal(t, int64(2), s.DataVersion())

	s.UpdateFunc(func(st table.State[table.Record]) table.State[table.Record] {
		st.Data = append(st.Data, table.Record{"id": 4})
		return st
	})
	assert.Equal(t, int64(3), s.DataVersion())
}

func TestUpdate_SnapshotsAreIsolated(t *testing.T) {
	s := New(testRows(), testColumns())
	before := s.Snapshot()

	s.Update(Patch[table.Record]{ColumnSizing: map[string]float64{"name": 200}})

	_, had := before.ColumnSizing["name"]
	assert.False(t, had, "earlier snapshot must not see later writes")
	assert.Equal(t, 200.0, s.Snapshot().ColumnSizing["name"])

	snap := s.Snapshot()
	snap.VisibleColumns[0] = "mutated"
	assert.Equal(t, "id", s.Snapshot().VisibleColumns[0])
}

func TestUpdateFunc_SanitizesInvariants(t *testing.T) {
	s := New(testRows(), testColumns())

	snap := s.UpdateFunc(func(st table.State[table.Record]) table.State[table.Record] {
		st.PinnedColumns = table.Pinned{
			Left:  []string{"name", "email", "name"},
			Right: []string{"email", "id"},
		}
		st.ColumnSizing["id"] = 3
		st.SortDirection = "sideways"
		return st
	})

	assert.Equal(t, []string{"name", "email"}, snap.PinnedColumns.Left)
	assert.Equal(t, []string{"id"}, snap.PinnedColumns.Right)
	assert.Equal(t, table.MinColumnWidth, snap.ColumnSizing["id"])
	assert.Equal(t, table.SortAsc, snap.SortDirection)
}

func TestUpdate_FetchErrorSlot(t *testing.T) {
	s := New(testRows(), testColumns())
	boom := errors.New("boom")

	s.Update(Patch[table.Record]{FetchError: boom, SetFetchError: true})
	assert.ErrorIs(t, s.Snapshot().FetchError, boom)

	s.Update(Patch[table.Record]{Loading: Ptr(true)})
	assert.ErrorIs(t, s.Snapshot().FetchError, boom, "unrelated patch keeps the error")

	s.Update(Patch[table.Record]{SetFetchError: true})
	assert.NoError(t, s.Snapshot().FetchError)
}

func TestReset_DiscardsCustomizations(t *testing.T) {
	s := New(testRows(), testColumns(), table.WithFilter[table.Record]("ad"))
	s.Update(Patch[table.Record]{
		SortColumn:     Ptr("email"),
		VisibleColumns: &[]string{"id"},
		PinnedColumns:  &table.Pinned{Right: []string{"name"}},
		ColumnSizing:   map[string]float64{"email": 300},
	})

	snap := s.Reset()

	assert.Len(t, snap.Data, 2, "reset keeps the current data")
	assert.Empty(t, snap.SortColumn)
	assert.Empty(t, snap.FilterValue)
	assert.Equal(t, []string{"id", "name", "email"}, snap.VisibleColumns)
	assert.Equal(t, []string{"name"}, snap.PinnedColumns.Left)
	assert.Empty(t, snap.PinnedColumns.Right)
	assert.NotContains(t, snap.ColumnSizing, "email")
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := New(testRows(), testColumns())

	var a, b int
	unsubA := s.Subscribe(func(table.State[table.Record]) { a++ })
	s.Subscribe(func(table.State[table.Record]) { b++ })

	s.Update(Patch[table.Record]{FilterValue: Ptr("x")})
	unsubA()
	s.Update(Patch[table.Record]{FilterValue: Ptr("y")})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestVersioned_MatchesSnapshot(t *testing.T) {
	s := New(testRows(), testColumns())
	s.Update(Patch[table.Record]{FilterValue: Ptr("ad")})
	rows := []table.Record{{"id": 3}}
	s.Update(Patch[table.Record]{Data: &rows})

	snap, v, dv := s.Versioned()
	assert.Equal(t, "ad", snap.FilterValue)
	assert.Len(t, snap.Data, 1)
	assert.Equal(t, s.Version(), v)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, int64(2), dv)
}
