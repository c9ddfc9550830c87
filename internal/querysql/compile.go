// Package querysql compiles page requests to parameterized SQL.
//
// Every SELECT carries an ORDER BY ending in the table key, so pages are
// stable across calls even when the sort column has duplicates. Values are
// always bound as parameters; identifiers are validated against the table's
// declared columns and then quoted.
package querysql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

// Dialect selects placeholder syntax and case-insensitive matching.
type Dialect int

const (
	// SQLite uses ? placeholders and LIKE (case-insensitive for ASCII).
	SQLite Dialect = iota

	// Postgres uses $n placeholders and ILIKE.
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "dialect(" + strconv.Itoa(int(d)) + ")"
	}
}

// Table describes a queryable table.
type Table struct {
	Name    string
	Columns []string

	// Key is the unique tiebreaker column. Defaults to "id".
	Key string

	// Searchable columns take part in the global filter. Empty means all
	// columns.
	Searchable []string
}

func (t Table) key() string {
	if t.Key == "" {
		return "id"
	}
	return t.Key
}

func (t Table) has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return col == t.key()
}

// Page is a compiled page query and the matching count query.
type Page struct {
	SQL   string
	Args  []any
	Count string

	// CountArgs are Args without LIMIT and OFFSET.
	CountArgs []any

	// Request is the normalized request that was compiled; unknown sort
	// columns and filter columns have been dropped from it.
	Request remote.Request
}

// SQLCompiler compiles remote.Request values for one dialect.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for d.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile builds the page and count queries for req against t.
//
// Unknown sort columns are ignored (the query falls back to key order), as
// are column filters naming unknown columns. The global filter is an OR of
// case-insensitive contains matches over the searchable columns; column
// filters are ANDed with it.
func (c *SQLCompiler) Compile(t Table, req remote.Request) (Page, error) {
	if t.Name == "" {
		return Page{}, fmt.Errorf("compile page: table name is empty")
	}
	if len(t.Columns) == 0 {
		return Page{}, fmt.Errorf("compile page: table %q has no columns", t.Name)
	}
	req = req.Normalize()

	var b builder
	b.dialect = c.Dialect

	var where []string
	if req.Filter != "" {
		cols := t.Searchable
		if len(cols) == 0 {
			cols = t.Columns
		}
		var ors []string
		for _, col := range cols {
			if !t.has(col) {
				continue
			}
			ors = append(ors, b.contains(col, req.Filter))
		}
		if len(ors) > 0 {
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}

	var kept map[string]string
	for _, col := range sortedKeys(req.Filters) {
		v := req.Filters[col]
		if v == "" || !t.has(col) {
			continue
		}
		if kept == nil {
			kept = make(map[string]string)
		}
		kept[col] = v
		where = append(where, b.contains(col, v))
	}
	req.Filters = kept

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	if req.SortColumn != "" && !t.has(req.SortColumn) {
		req.SortColumn = ""
	}

	countArgs := append([]any(nil), b.args...)
	count := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", QuoteIdent(t.Name), whereClause)

	limit := b.bind(req.PageSize)
	offset := b.bind(req.Offset())
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %s OFFSET %s",
		quoteList(SelectColumns(t)),
		QuoteIdent(t.Name),
		whereClause,
		c.stableOrderKey(t, req),
		limit,
		offset)

	return Page{
		SQL:       sql,
		Args:      b.args,
		Count:     count,
		CountArgs: countArgs,
		Request:   req,
	}, nil
}

// stableOrderKey returns the ORDER BY list: the requested sort, then the key.
func (c *SQLCompiler) stableOrderKey(t Table, req remote.Request) string {
	key := QuoteIdent(t.key()) + " ASC"
	if c.Dialect == SQLite {
		key += " COLLATE BINARY"
	}
	if req.SortColumn == "" || req.SortColumn == t.key() {
		if req.SortColumn == t.key() && req.SortDirection == table.SortDesc {
			return strings.Replace(key, " ASC", " DESC", 1)
		}
		return key
	}
	dir := "ASC"
	if req.SortDirection == table.SortDesc {
		dir = "DESC"
	}
	return QuoteIdent(req.SortColumn) + " " + dir + ", " + key
}

// builder accumulates bound arguments and numbers placeholders.
type builder struct {
	dialect Dialect
	args    []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.dialect == Postgres {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func (b *builder) contains(col, term string) string {
	p := b.bind("%" + EscapeLike(term) + "%")
	op := "LIKE"
	if b.dialect == Postgres {
		op = "ILIKE"
	}
	return fmt.Sprintf(`CAST(%s AS TEXT) %s %s ESCAPE '\'`, QuoteIdent(col), op, p)
}

// QuoteIdent quotes an SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeLike escapes LIKE wildcards with a backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SelectColumns lists the columns a compiled page query returns, in order:
// the key first, then the declared columns without the key.
func SelectColumns(t Table) []string {
	key := t.key()
	out := []string{key}
	for _, c := range t.Columns {
		if c == key {
			continue
		}
		out = append(out, c)
	}
	return out
}

func quoteList(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = QuoteIdent(c)
	}
	return strings.Join(parts, ", ")
}

// sortedKeys returns map keys in sorted order for deterministic SQL.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
