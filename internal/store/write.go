package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tablegrid/internal/querysql"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// KeyColumn is the primary key column of every dataset table.
const KeyColumn = "id"

var (
	// ErrDatasetExists is returned when creating a dataset whose name is taken.
	ErrDatasetExists = errors.New("dataset already exists")

	// ErrDatasetNotFound is returned for an unknown dataset name. It wraps
	// remote.ErrNotFound.
	ErrDatasetNotFound = fmt.Errorf("dataset %w", remote.ErrNotFound)
)

// Dataset is a registered dataset.
type Dataset struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	Searchable []string `json:"searchable"`
	RowCount   int64    `json:"row_count"`
	Seq        int64    `json:"seq"`
}

// CreateDataset registers a dataset and creates its row table. Columns are
// value columns; "id" is implicit and skipped if listed.
func (s *Store) CreateDataset(ctx context.Context, name string, columns, searchable []string) (Dataset, error) {
	if strings.TrimSpace(name) == "" {
		return Dataset{}, fmt.Errorf("create dataset: name is empty")
	}
	cols := make([]string, 0, len(columns))
	seen := map[string]bool{KeyColumn: true}
	for _, c := range columns {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return Dataset{}, fmt.Errorf("create dataset %q: no value columns", name)
	}

	colsJSON, err := marshalColumns(cols)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: %w", name, err)
	}
	searchJSON, err := marshalColumns(searchable)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: %w", name, err)
	}

	ds := Dataset{Name: name, Table: "ds_" + name, Columns: cols, Searchable: searchable}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: %w", name, err)
	}
	if exists > 0 {
		return Dataset{}, fmt.Errorf("create dataset %q: %w", name, ErrDatasetExists)
	}

	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM datasets`).Scan(&ds.Seq)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: next seq: %w", name, err)
	}

	defs := []string{querysql.QuoteIdent(KeyColumn) + " INTEGER PRIMARY KEY"}
	for _, c := range cols {
		defs = append(defs, querysql.QuoteIdent(c))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", querysql.QuoteIdent(ds.Table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: create table: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (name, table_name, columns, searchable, row_count, seq)
		VALUES (?, ?, ?, ?, 0, ?)
	`, ds.Name, ds.Table, colsJSON, searchJSON, ds.Seq)
	if err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: register: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Dataset{}, fmt.Errorf("create dataset %q: commit: %w", name, err)
	}
	return ds, nil
}

// InsertRows appends rows to a dataset in one transaction and returns the
// number inserted. A row's "id", when present, is used as its key. Fields
// that are not dataset columns are ignored.
func (s *Store) InsertRows(ctx context.Context, name string, rows []table.Record) (int, error) {
	ds, err := s.Dataset(ctx, name)
	if err != nil {
		return 0, err
	}

	names := append([]string{KeyColumn}, ds.Columns...)
	quoted := make([]string, len(names))
	marks := make([]string, len(names))
	for i, n := range names {
		quoted[i] = querysql.QuoteIdent(n)
		marks[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.QuoteIdent(ds.Table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert rows into %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("insert rows into %q: prepare: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		args := make([]any, len(names))
		for j, n := range names {
			p, err := toParam(row[n])
			if err != nil {
				return 0, fmt.Errorf("insert rows into %q: row %d column %q: %w", name, i, n, err)
			}
			args[j] = p
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert rows into %q: row %d: %w", name, i, err)
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE datasets SET row_count = (SELECT COUNT(*) FROM %s) WHERE name = ?`,
		querysql.QuoteIdent(ds.Table)), name)
	if err != nil {
		return 0, fmt.Errorf("insert rows into %q: update count: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert rows into %q: commit: %w", name, err)
	}
	return len(rows), nil
}

// DropDataset removes a dataset and its rows.
func (s *Store) DropDataset(ctx context.Context, name string) error {
	ds, err := s.Dataset(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop dataset %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+querysql.QuoteIdent(ds.Table)); err != nil {
		return fmt.Errorf("drop dataset %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("drop dataset %q: %w", name, err)
	}
	return tx.Commit()
}

// scanDataset reads one registry row.
func scanDataset(row interface{ Scan(...any) error }) (Dataset, error) {
	var ds Dataset
	var cols, search string
	if err := row.Scan(&ds.Name, &ds.Table, &cols, &search, &ds.RowCount, &ds.Seq); err != nil {
		return Dataset{}, err
	}
	var err error
	if ds.Columns, err = unmarshalColumns(cols); err != nil {
		return Dataset{}, err
	}
	if ds.Searchable, err = unmarshalColumns(search); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}
