package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tablegrid/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string // overrides server.database
	Replace  bool   // drop an existing dataset first
}

// SeedResult reports a loaded dataset.
type SeedResult struct {
	Dataset  string   `json:"dataset"`
	Database string   `json:"database"`
	Columns  []string `json:"columns"`
	Rows     int      `json:"rows"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <specs> <table> <rows-file>",
		Short: "Load rows into a SQLite dataset",
		Long: `Create a SQLite dataset named after a table definition and load rows
into it. The dataset can then be served with "tablegrid serve" or viewed
with server paging.

Rows are a YAML or JSON list of objects. Values are read through each
column's accessor and stored flat under the column id; an "id" field
becomes the dataset key.

Examples:
  tablegrid seed ./tables people people.yaml
  tablegrid seed ./tables people people.json --db /tmp/people.db --replace`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (default: server.database)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace an existing dataset")

	return cmd
}

func runSeed(opts *SeedOptions, specsPath, name, rowsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().Server.Database
	}

	spec, err := LoadSpec(specsPath, name)
	if err != nil {
		_ = formatter.Error(codeOf(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load table", err)
	}
	rows, err := readRows(rowsPath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadRows, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read rows", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Replace {
		if err := st.DropDataset(ctx, spec.Name); err != nil && !errors.Is(err, store.ErrDatasetNotFound) {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to drop dataset", err)
		}
	}

	ds, err := st.CreateDataset(ctx, spec.Name, storedColumns(spec), spec.Options.Fuzzy.Keys)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create dataset", err)
	}
	n, err := st.InsertRows(ctx, spec.Name, flattenRows(spec, rows))
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to insert rows", err)
	}
	slog.Info("dataset seeded", "dataset", ds.Name, "rows", n, "database", dbPath)

	result := SeedResult{Dataset: ds.Name, Database: dbPath, Columns: ds.Columns, Rows: n}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Seeded %s with %d row(s) (%s)\n", ds.Name, n, dbPath)
	return nil
}
