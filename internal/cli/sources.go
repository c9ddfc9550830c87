package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tablegrid/internal/config"
	"github.com/roach88/tablegrid/internal/querysql"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/remote/pgsource"
	"github.com/roach88/tablegrid/internal/store"
	"github.com/roach88/tablegrid/internal/table"
)

// openCatalog opens the configured row database. SQLite datasets describe
// themselves; postgres tables are registered from specs, one per table.
func openCatalog(ctx context.Context, cfg *config.Config, specs []table.Spec) (remote.Catalog, func(), error) {
	if cfg.Server.IsPostgres() {
		pool, err := pgsource.Connect(ctx, pgsource.PoolConfig{
			URL:      cfg.Server.Database,
			MaxConns: int(cfg.Server.MaxConns),
		})
		if err != nil {
			return nil, nil, err
		}
		tables := make([]querysql.Table, 0, len(specs))
		for _, s := range specs {
			tables = append(tables, querysql.Table{
				Name:       s.Name,
				Columns:    storedColumns(s),
				Searchable: s.Options.Fuzzy.Keys,
			})
		}
		slog.Debug("postgres catalog ready", "tables", len(tables))
		return pgsource.NewCatalog(pool, tables...), pool.Close, nil
	}

	st, err := store.Open(cfg.Server.Database)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("sqlite catalog ready", "path", cfg.Server.Database)
	return st, func() { st.Close() }, nil
}

// storedColumns lists the database column names of s. Rows are stored
// flat, keyed by column id.
func storedColumns(s table.Spec) []string {
	cols := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.ID == store.KeyColumn {
			continue
		}
		cols = append(cols, c.ID)
	}
	return cols
}

// storedSpec rebinds s to flat database rows: every accessor becomes the
// column id.
func storedSpec(s table.Spec) table.Spec {
	out := s
	out.Columns = make([]table.ColumnSpec, len(s.Columns))
	for i, c := range s.Columns {
		c.Accessor = ""
		out.Columns[i] = c
	}
	return out
}

// flattenRows re-keys rows by column id, reading each value through the
// column accessor. A row's "id" is kept as the dataset key.
func flattenRows(s table.Spec, rows []table.Record) []table.Record {
	cols := table.RecordColumns(s.Columns)
	out := make([]table.Record, len(rows))
	for i, r := range rows {
		flat := table.Record{}
		if id, ok := r[store.KeyColumn]; ok {
			flat[store.KeyColumn] = id
		}
		for _, c := range cols {
			if v, ok := c.Value(r); ok {
				flat[c.ID] = v
			}
		}
		out[i] = flat
	}
	return out
}

// readRows loads a YAML or JSON list of row objects.
func readRows(path string) ([]table.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	// JSON documents are valid YAML, so one decoder serves both.
	var rows []table.Record
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows %s: %w", path, err)
	}
	return rows, nil
}
