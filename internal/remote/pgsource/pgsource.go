// Package pgsource serves dataset pages from PostgreSQL tables.
package pgsource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/tablegrid/internal/querysql"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// PoolConfig sizes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ParseConfig builds a pgxpool config from cfg without connecting.
func ParseConfig(cfg PoolConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	return poolConfig, nil
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	slog.Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return pool, nil
}

// Querier is the subset of *pgxpool.Pool a Source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source fetches pages of one table. It implements
// remote.Fetcher[table.Record].
type Source struct {
	db       Querier
	table    querysql.Table
	compiler *querysql.SQLCompiler
}

// NewSource creates a source over t.
func NewSource(db Querier, t querysql.Table) *Source {
	return &Source{
		db:       db,
		table:    t,
		compiler: querysql.NewSQLCompiler(querysql.Postgres),
	}
}

// Fetch implements remote.Fetcher.
func (s *Source) Fetch(ctx context.Context, req remote.Request) (remote.Page[table.Record], error) {
	q, err := s.compiler.Compile(s.table, req)
	if err != nil {
		return remote.Page[table.Record]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("count rows: %w", err)
	}

	rows, err := s.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	cols := querysql.SelectColumns(s.table)
	out := []table.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return remote.Page[table.Record]{}, fmt.Errorf("read row values: %w", err)
		}
		rec := make(table.Record, len(cols))
		for i, col := range cols {
			if i < len(values) {
				rec[col] = values[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return remote.Page[table.Record]{}, fmt.Errorf("rows error: %w", err)
	}

	return remote.Page[table.Record]{
		Rows:      out,
		TotalRows: total,
		Page:      q.Request.Page,
		PageSize:  q.Request.PageSize,
	}, nil
}

// Catalog maps dataset names to tables in one database. It implements
// remote.Catalog.
type Catalog struct {
	db     Querier
	tables map[string]querysql.Table
}

// NewCatalog creates a catalog. Each table is registered under its Name.
func NewCatalog(db Querier, tables ...querysql.Table) *Catalog {
	c := &Catalog{db: db, tables: make(map[string]querysql.Table, len(tables))}
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	return c
}

// Source implements remote.Catalog. Unknown names yield a fetcher that
// fails with remote.ErrNotFound.
func (c *Catalog) Source(name string) remote.Fetcher[table.Record] {
	t, ok := c.tables[name]
	if !ok {
		return remote.FetcherFunc[table.Record](func(context.Context, remote.Request) (remote.Page[table.Record], error) {
			return remote.Page[table.Record]{}, fmt.Errorf("dataset %q: %w", name, remote.ErrNotFound)
		})
	}
	return NewSource(c.db, t)
}
