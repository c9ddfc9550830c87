package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tablegrid/internal/querysql"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// Dataset returns the registry entry for name.
func (s *Store) Dataset(ctx context.Context, name string) (Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, table_name, columns, searchable, row_count, seq
		FROM datasets
		WHERE name = ?
	`, name)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, fmt.Errorf("dataset %q: %w", name, ErrDatasetNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %q: %w", name, err)
	}
	return ds, nil
}

// Datasets lists all datasets in creation order.
func (s *Store) Datasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, table_name, columns, searchable, row_count, seq
		FROM datasets
		ORDER BY seq ASC, name ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("list datasets: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

// Fetch returns one page of a dataset.
func (s *Store) Fetch(ctx context.Context, name string, req remote.Request) (remote.Page[table.Record], error) {
	ds, err := s.Dataset(ctx, name)
	if err != nil {
		return remote.Page[table.Record]{}, err
	}

	q, err := querysql.NewSQLCompiler(querysql.SQLite).Compile(querysql.Table{
		Name:       ds.Table,
		Columns:    ds.Columns,
		Key:        KeyColumn,
		Searchable: ds.Searchable,
	}, req)
	if err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("fetch %q: %w", name, err)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("fetch %q: count rows: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("fetch %q: query rows: %w", name, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("fetch %q: %w", name, err)
	}

	return remote.Page[table.Record]{
		Rows:      records,
		TotalRows: total,
		Page:      q.Request.Page,
		PageSize:  q.Request.PageSize,
	}, nil
}

// Source returns a Fetcher over one dataset.
func (s *Store) Source(name string) remote.Fetcher[table.Record] {
	return remote.FetcherFunc[table.Record](func(ctx context.Context, req remote.Request) (remote.Page[table.Record], error) {
		return s.Fetch(ctx, name, req)
	})
}

// scanRecords reads every row into a Record keyed by column name.
func scanRecords(rows *sql.Rows) ([]table.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []table.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rec := make(table.Record, len(cols))
		for i, c := range cols {
			rec[c] = fromColumn(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
