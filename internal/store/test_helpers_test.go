package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tablegrid/internal/table"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPeople creates the "people" dataset with five rows.
func seedPeople(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.CreateDataset(ctx, "people", []string{"name", "city", "age"}, nil); err != nil {
		t.Fatalf("CreateDataset() failed: %v", err)
	}
	rows := []table.Record{
		{"id": 1, "name": "John", "city": "Boston", "age": 40},
		{"id": 2, "name": "alice", "city": "Denver", "age": 31},
		{"id": 3, "name": "Bob", "city": "Boston", "age": 25},
		{"id": 4, "name": "carol", "city": nil, "age": 52},
		{"id": 5, "name": "Dave", "city": "Austin", "age": 25},
	}
	if _, err := s.InsertRows(ctx, "people", rows); err != nil {
		t.Fatalf("InsertRows() failed: %v", err)
	}
}

func ids(rows []table.Record) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i], _ = r["id"].(int64)
	}
	return out
}
