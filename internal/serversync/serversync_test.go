package serversync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/pipeline"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/state"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/testutil"
)

func columns() []table.Column[table.Record] {
	return table.RecordColumns([]table.ColumnSpec{{ID: "id", Sortable: true}, {ID: "name", Sortable: true}})
}

// recordingFetcher returns rows named after the page, in descending id
// order, so a local re-sort would be visible.
type recordingFetcher struct {
	mu    sync.Mutex
	calls []remote.Request
	fail  error
}

func (f *recordingFetcher) Fetch(_ context.Context, req remote.Request) (remote.Page[table.Record], error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return remote.Page[table.Record]{}, fail
	}
	return remote.Page[table.Record]{
		Rows: []table.Record{
			{"id": 3, "name": fmt.Sprintf("p%d-c", req.Page)},
			{"id": 1, "name": fmt.Sprintf("p%d-a", req.Page)},
			{"id": 2, "name": fmt.Sprintf("p%d-b", req.Page)},
		},
		TotalRows: 300,
	}, nil
}

func (f *recordingFetcher) requests() []remote.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.Request(nil), f.calls...)
}

func names(rows []table.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["name"].(string)
	}
	return out
}

func TestSetPage_ExactlyOneFetchNoLocalReorder(t *testing.T) {
	store := state.New([]table.Record{}, columns(),
		table.WithSort[table.Record]("name", table.SortAsc))
	f := &recordingFetcher{}
	a := New(store, remote.Fetcher[table.Record](f), WithEnabled(true), WithPageSize(3),
		WithTokens(testutil.NewFixedTokenGenerator("t1", "t2")))

	require.True(t, a.Sync(context.Background()))
	a.Wait()

	require.True(t, a.SetPage(context.Background(), 2))
	a.Wait()

	calls := f.requests()
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[1].Page)
	assert.Equal(t, 3, calls[1].PageSize)
	assert.Equal(t, "name", calls[1].SortColumn)
	assert.Equal(t, "t2", calls[1].Token)

	snap := store.Snapshot()
	view := pipeline.ComputeView(snap.Data, snap, columns(), nil, pipeline.Options{ServerSide: a.Enabled()})
	assert.Equal(t, []string{"p2-c", "p2-a", "p2-b"}, names(view))
	assert.Equal(t, int64(300), snap.TotalRows)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.FetchError)
}

func TestSync_UnchangedRequestDoesNotRefetch(t *testing.T) {
	store := state.New([]table.Record{}, columns())
	f := &recordingFetcher{}
	a := New(store, remote.Fetcher[table.Record](f), WithEnabled(true))

	a.Sync(context.Background())
	a.Wait()
	assert.False(t, a.Sync(context.Background()))
	assert.False(t, a.SetPage(context.Background(), 1))
	assert.Equal(t, 1, a.Fetches())

	assert.True(t, a.Refresh(context.Background()))
	a.Wait()
	assert.Equal(t, 2, a.Fetches())
}

func TestSync_SortAndFilterChangesFetch(t *testing.T) {
	store := state.New([]table.Record{}, columns())
	f := &recordingFetcher{}
	a := New(store, remote.Fetcher[table.Record](f), WithEnabled(true), WithPage(4))
	ctx := context.Background()

	a.Sync(ctx)
	a.Wait()

	store.Update(state.Patch[table.Record]{SortColumn: state.Ptr("id"), SortDirection: state.Ptr(table.SortDesc)})
	require.True(t, a.Sync(ctx))
	a.Wait()

	store.Update(state.Patch[table.Record]{FilterValue: state.Ptr("bob")})
	require.True(t, a.Sync(ctx))
	a.Wait()

	calls := f.requests()
	require.Len(t, calls, 3)
	assert.Equal(t, 4, calls[1].Page, "sort keeps the page")
	assert.Equal(t, table.SortDesc, calls[1].SortDirection)
	assert.Equal(t, 1, calls[2].Page, "filter returns to page 1")
	assert.Equal(t, "bob", calls[2].Filter)
}

func TestSetPageSize_ResetsPage(t *testing.T) {
	store := state.New([]table.Record{}, columns())
	a := New(store, remote.Fetcher[table.Record](&recordingFetcher{}), WithEnabled(true), WithPage(3))

	a.SetPageSize(context.Background(), 25)
	a.Wait()
	page, size := a.Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, 25, size)
}

func TestDisabled_NeverFetches(t *testing.T) {
	store := state.New([]table.Record{{"id": 1}}, columns())
	f := &recordingFetcher{}
	a := New(store, remote.Fetcher[table.Record](f))

	assert.False(t, a.Sync(context.Background()))
	assert.False(t, a.SetPage(context.Background(), 2))
	assert.False(t, a.Refresh(context.Background()))
	assert.Empty(t, f.requests())
}

func TestFailure_KeepsDataAndSetsErrorSlot(t *testing.T) {
	prior := []table.Record{{"id": 9, "name": "prior"}}
	store := state.New(prior, columns())
	f := &recordingFetcher{fail: errors.New("connection refused")}
	a := New(store, remote.Fetcher[table.Record](f), WithEnabled(true))

	a.Sync(context.Background())
	a.Wait()

	snap := store.Snapshot()
	assert.Equal(t, []string{"prior"}, names(snap.Data))
	assert.False(t, snap.Loading)
	require.Error(t, snap.FetchError)
	assert.True(t, IsFetchError(snap.FetchError))
	assert.Contains(t, snap.FetchError.Error(), "connection refused")

	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()
	a.Refresh(context.Background())
	a.Wait()
	assert.NoError(t, store.Snapshot().FetchError)
}

func TestStaleResponseDiscarded(t *testing.T) {
	store := state.New([]table.Record{}, columns())

	gates := map[int]chan struct{}{2: make(chan struct{}), 3: make(chan struct{})}
	var mu sync.Mutex
	canceled := map[int]bool{}
	fetcher := remote.FetcherFunc[table.Record](func(ctx context.Context, req remote.Request) (remote.Page[table.Record], error) {
		<-gates[req.Page]
		mu.Lock()
		canceled[req.Page] = ctx.Err() != nil
		mu.Unlock()
		return remote.Page[table.Record]{Rows: []table.Record{{"id": req.Page, "name": fmt.Sprintf("page-%d", req.Page)}}}, nil
	})

	completions := make(chan func(), 2)
	a := New(store, remote.Fetcher[table.Record](fetcher), WithEnabled(true), WithPage(2),
		WithDispatch(func(f func()) { completions <- f }))

	ctx := context.Background()
	require.True(t, a.Sync(ctx))
	require.True(t, a.SetPage(ctx, 3))

	close(gates[3])
	(<-completions)()
	assert.Equal(t, []string{"page-3"}, names(store.Snapshot().Data))

	close(gates[2])
	(<-completions)()
	a.Wait()

	assert.Equal(t, []string{"page-3"}, names(store.Snapshot().Data), "late page 2 response ignored")
	assert.False(t, store.Snapshot().Loading)
	mu.Lock()
	assert.True(t, canceled[2], "superseded request was canceled")
	mu.Unlock()
}

func TestCanceledFetchIsNotAnError(t *testing.T) {
	store := state.New([]table.Record{}, columns())
	started := make(chan struct{})
	fetcher := remote.FetcherFunc[table.Record](func(ctx context.Context, _ remote.Request) (remote.Page[table.Record], error) {
		close(started)
		<-ctx.Done()
		return remote.Page[table.Record]{}, ctx.Err()
	})
	a := New(store, remote.Fetcher[table.Record](fetcher), WithEnabled(true))

	a.Sync(context.Background())
	<-started
	a.Close()
	a.Wait()

	snap := store.Snapshot()
	assert.NoError(t, snap.FetchError)
	assert.False(t, snap.Loading)
}
