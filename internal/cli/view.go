package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/roach88/tablegrid/internal/config"
	"github.com/roach88/tablegrid/internal/engine"
	"github.com/roach88/tablegrid/internal/table"
)

// pixelsPerCell converts column widths to terminal cells.
const pixelsPerCell = 8

// minCells keeps narrow columns readable.
const minCells = 3

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Rows     string // row file; empty reads the dataset from the database
	Sort     string
	Desc     bool
	Filter   string
	Page     int
	ScrollTo int
	Height   float64
	Hide     []string
	PinLeft  []string
	PinRight []string
	MaxWidth int
}

// ViewColumn describes one rendered column.
type ViewColumn struct {
	ID     string  `json:"id"`
	Header string  `json:"header"`
	Width  float64 `json:"width"`
	Pinned string  `json:"pinned,omitempty"`
}

// ViewResult is the JSON form of a rendered window.
type ViewResult struct {
	Table      string              `json:"table"`
	Sort       string              `json:"sort,omitempty"`
	Filter     string              `json:"filter,omitempty"`
	Columns    []ViewColumn        `json:"columns"`
	Rows       []map[string]string `json:"rows"`
	Start      int                 `json:"start"`
	End        int                 `json:"end"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page,omitempty"`
	TotalPages int                 `json:"total_pages,omitempty"`
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view <specs> <table>",
		Short: "Render the visible window of a table",
		Long: `Build a table from its CUE definition, apply sort, filter, pinning
and scrolling, and print the materialized window.

Rows come from --rows (YAML or JSON list of objects) or, without it, from
the dataset of the same name in the configured database.

Examples:
  tablegrid view ./tables people --rows people.yaml --sort name
  tablegrid view ./tables people --rows people.yaml --filter ada --pin-left name
  tablegrid view ./tables orders --page 3 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rows, "rows", "", "row file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort column")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "global filter term")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "page to fetch (server paging)")
	cmd.Flags().IntVar(&opts.ScrollTo, "scroll-to", 0, "row index to scroll to (virtualized tables)")
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "viewport height in pixels (virtualized tables)")
	cmd.Flags().StringSliceVar(&opts.Hide, "hide", nil, "columns to hide")
	cmd.Flags().StringSliceVar(&opts.PinLeft, "pin-left", nil, "columns to pin left")
	cmd.Flags().StringSliceVar(&opts.PinRight, "pin-right", nil, "columns to pin right")
	cmd.Flags().IntVar(&opts.MaxWidth, "max-cell", 40, "maximum cells per column")

	return cmd
}

func runView(opts *ViewOptions, specsPath, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.settings()

	spec, err := LoadSpec(specsPath, name)
	if err != nil {
		_ = formatter.Error(codeOf(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load table", err)
	}

	tbl, closeFn, err := buildTable(cmd.Context(), cfg, spec, opts.Rows)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build table", err)
	}
	defer closeFn()

	applyViewFlags(tbl, opts)
	if err := tbl.FetchError(); err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to fetch rows", err)
	}

	result := snapshotView(tbl, spec.Name)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	renderView(formatter.Writer, result, opts.MaxWidth)
	return nil
}

// buildTable creates the engine table for spec. Without a row file the
// table pages through the configured database.
func buildTable(ctx context.Context, cfg *config.Config, spec table.Spec, rowsPath string) (*engine.Table[table.Record], func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := config.EngineOptions[table.Record](cfg)
	opts = append(opts, engine.SpecOptions[table.Record](spec.Options)...)
	opts = append(opts, engine.WithName[table.Record](spec.Name))

	closeFn := func() {}
	var rows []table.Record
	if rowsPath != "" {
		var err error
		if rows, err = readRows(rowsPath); err != nil {
			return nil, nil, err
		}
	} else {
		catalog, closeCatalog, err := openCatalog(ctx, cfg, []table.Spec{spec})
		if err != nil {
			return nil, nil, err
		}
		closeFn = closeCatalog
		pageSize := spec.Options.Server.PageSize
		if pageSize <= 0 {
			pageSize = cfg.Server.PageSize
		}
		spec = storedSpec(spec)
		opts = append(opts, engine.WithServer[table.Record](catalog.Source(spec.Name), pageSize))
	}

	tbl, err := engine.New(rows, table.RecordColumns(spec.Columns), opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	tbl.Settle()
	return tbl, func() { tbl.Close(); closeFn() }, nil
}

// applyViewFlags replays the flags as UI events and settles each one.
func applyViewFlags(tbl *engine.Table[table.Record], opts *ViewOptions) {
	if opts.Sort != "" {
		tbl.RequestSort(opts.Sort)
		if opts.Desc {
			tbl.RequestSort(opts.Sort)
		}
		tbl.Settle()
	}
	if opts.Filter != "" {
		tbl.SetFilterTerm(opts.Filter)
		tbl.FlushFilter()
		tbl.Settle()
	}
	for _, id := range opts.PinLeft {
		tbl.TogglePin(id, table.PinLeft)
	}
	for _, id := range opts.PinRight {
		tbl.TogglePin(id, table.PinRight)
	}
	for _, id := range opts.Hide {
		tbl.ToggleVisibility(id)
	}
	if opts.Page > 0 && tbl.ServerSide() {
		tbl.SetPage(opts.Page)
		tbl.Settle()
	}
	if opts.Height > 0 {
		tbl.SetContainerHeight(opts.Height)
	}
	if opts.ScrollTo > 0 {
		tbl.ScrollTo(opts.ScrollTo)
	}
	tbl.Settle()
}

// snapshotView collects the rendered window.
func snapshotView(tbl *engine.Table[table.Record], name string) ViewResult {
	st := tbl.State()
	cols := tbl.Columns()
	rows := tbl.Rows()
	w := tbl.Window()

	result := ViewResult{
		Table:   name,
		Filter:  st.FilterValue,
		Columns: make([]ViewColumn, len(cols)),
		Rows:    []map[string]string{},
		Total:   len(rows),
	}
	if st.SortColumn != "" {
		result.Sort = st.SortColumn + " " + string(st.SortDirection)
	}
	for i, c := range cols {
		header := c.Header
		if header == "" {
			header = c.ID
		}
		result.Columns[i] = ViewColumn{ID: c.ID, Header: header, Width: tbl.ColumnWidth(c.ID)}
		switch {
		case slices.Contains(st.PinnedColumns.Left, c.ID):
			result.Columns[i].Pinned = string(table.PinLeft)
		case slices.Contains(st.PinnedColumns.Right, c.ID):
			result.Columns[i].Pinned = string(table.PinRight)
		}
	}
	for _, r := range tbl.VisibleRows() {
		cells := make(map[string]string, len(cols))
		for _, c := range cols {
			cells[c.ID], _ = c.Text(r)
		}
		result.Rows = append(result.Rows, cells)
	}
	if w.VisibleCount > 0 && len(rows) > 0 {
		result.Start, result.End = w.Start, w.End
	}
	if tbl.ServerSide() {
		result.Page, _ = tbl.Page()
		result.TotalPages = tbl.TotalPages()
		result.Total = int(st.TotalRows)
	}
	return result
}

// renderView prints a fixed-width grid. Cell widths follow column widths
// and are measured in terminal cells, so wide runes stay aligned.
func renderView(w io.Writer, v ViewResult, maxCells int) {
	widths := make([]int, len(v.Columns))
	header := make([]string, len(v.Columns))
	rule := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		widths[i] = cellsFor(c.Width, maxCells)
		header[i] = fitCell(c.Header, widths[i])
		rule[i] = strings.Repeat("-", widths[i])
	}
	fmt.Fprintln(w, strings.Join(header, " | "))
	fmt.Fprintln(w, strings.Join(rule, "-+-"))

	line := make([]string, len(v.Columns))
	for _, row := range v.Rows {
		for i, c := range v.Columns {
			line[i] = fitCell(row[c.ID], widths[i])
		}
		fmt.Fprintln(w, strings.Join(line, " | "))
	}

	switch {
	case len(v.Rows) == 0:
		fmt.Fprintf(w, "(no rows of %d)\n", v.Total)
	case v.Page > 0:
		fmt.Fprintf(w, "(rows %d-%d, page %d/%d, %d total)\n", v.Start, v.End, v.Page, v.TotalPages, v.Total)
	default:
		fmt.Fprintf(w, "(rows %d-%d of %d)\n", v.Start, v.End, v.Total)
	}
}

// cellsFor converts a pixel width to a cell count within [minCells, max].
func cellsFor(px float64, maxCells int) int {
	n := int(px / pixelsPerCell)
	if maxCells > 0 && n > maxCells {
		n = maxCells
	}
	return max(n, minCells)
}

// fitCell truncates s to n cells and pads it on the right.
func fitCell(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.FillRight(runewidth.Truncate(s, n, "…"), n)
}

// codeOf returns the error code of a LoadError, or the generic code.
func codeOf(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
