package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

func TestCreateDataset_Registers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataset(ctx, "people", []string{"id", "name", "name", "city"}, []string{"name"})
	if err != nil {
		t.Fatalf("CreateDataset() failed: %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"name", "city"}) {
		t.Errorf("Columns = %v, want [name city]", ds.Columns)
	}

	got, err := s.Dataset(ctx, "people")
	if err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}
	if !reflect.DeepEqual(got.Searchable, []string{"name"}) || got.Seq != 1 {
		t.Errorf("Dataset() = %+v", got)
	}

	if _, err := s.CreateDataset(ctx, "people", []string{"x"}, nil); !errors.Is(err, ErrDatasetExists) {
		t.Errorf("second CreateDataset() error = %v, want ErrDatasetExists", err)
	}
}

func TestCreateDataset_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDataset(ctx, " ", []string{"a"}, nil); err == nil {
		t.Error("empty name accepted")
	}
	if _, err := s.CreateDataset(ctx, "keys", []string{"id"}, nil); err == nil {
		t.Error("dataset with only the key column accepted")
	}
}

func TestDataset_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Dataset(context.Background(), "missing")
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("error = %v, want ErrDatasetNotFound", err)
	}
}

func TestInsertRows_UpdatesCount(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	ds, err := s.Dataset(context.Background(), "people")
	if err != nil {
		t.Fatalf("Dataset() failed: %v", err)
	}
	if ds.RowCount != 5 {
		t.Errorf("RowCount = %d, want 5", ds.RowCount)
	}
}

func TestInsertRows_NestedValuesStoredAsJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateDataset(ctx, "nested", []string{"tags"}, nil); err != nil {
		t.Fatalf("CreateDataset() failed: %v", err)
	}
	if _, err := s.InsertRows(ctx, "nested", []table.Record{{"tags": []any{"a", "b"}}}); err != nil {
		t.Fatalf("InsertRows() failed: %v", err)
	}

	page, err := s.Fetch(ctx, "nested", remote.Request{})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if got := page.Rows[0]["tags"]; got != `["a","b"]` {
		t.Errorf("tags = %#v", got)
	}
	if page.Rows[0]["id"] != int64(1) {
		t.Errorf("id = %#v, want autoassigned 1", page.Rows[0]["id"])
	}
}

func TestFetch_PagesInKeyOrder(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	page, err := s.Fetch(ctx, "people", remote.Request{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if !reflect.DeepEqual(ids(page.Rows), []int64{3, 4}) {
		t.Errorf("ids = %v, want [3 4]", ids(page.Rows))
	}
	if page.TotalRows != 5 || page.Page != 2 || page.PageSize != 2 || page.TotalPages() != 3 {
		t.Errorf("page meta = %+v", page)
	}
}

func TestFetch_SortWithTiebreaker(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	page, err := s.Fetch(context.Background(), "people", remote.Request{
		SortColumn:    "age",
		SortDirection: table.SortDesc,
	})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	// 52, 40, 31, then the two 25s in id order
	if want := []int64{4, 1, 2, 3, 5}; !reflect.DeepEqual(ids(page.Rows), want) {
		t.Errorf("ids = %v, want %v", ids(page.Rows), want)
	}
}

func TestFetch_FilterIsCaseInsensitive(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	page, err := s.Fetch(ctx, "people", remote.Request{Filter: "BOSTON"})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if !reflect.DeepEqual(ids(page.Rows), []int64{1, 3}) || page.TotalRows != 2 {
		t.Errorf("ids = %v total = %d", ids(page.Rows), page.TotalRows)
	}

	page, err = s.Fetch(ctx, "people", remote.Request{Filters: map[string]string{"age": "25"}, Filter: "da"})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if !reflect.DeepEqual(ids(page.Rows), []int64{5}) {
		t.Errorf("ids = %v, want [5]", ids(page.Rows))
	}
}

func TestSource_ImplementsFetcher(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	var f remote.Fetcher[table.Record] = s.Source("people")
	page, err := f.Fetch(context.Background(), remote.Request{PageSize: 1})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0]["name"] != "John" {
		t.Errorf("rows = %v", page.Rows)
	}
}

func TestDatasets_ListAndDrop(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()
	if _, err := s.CreateDataset(ctx, "cities", []string{"name"}, nil); err != nil {
		t.Fatalf("CreateDataset() failed: %v", err)
	}

	list, err := s.Datasets(ctx)
	if err != nil {
		t.Fatalf("Datasets() failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "people" || list[1].Name != "cities" {
		t.Errorf("Datasets() = %+v", list)
	}

	if err := s.DropDataset(ctx, "people"); err != nil {
		t.Fatalf("DropDataset() failed: %v", err)
	}
	if _, err := s.Fetch(ctx, "people", remote.Request{}); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Fetch() after drop error = %v", err)
	}
}
