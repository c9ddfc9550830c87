package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/table"
)

var people = Table{Name: "people", Columns: []string{"name", "city", "age"}}

func TestCompile_DefaultOrderIsKey(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	page, err := c.Compile(people, remote.Request{})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "name", "city", "age" FROM "people" ORDER BY "id" ASC COLLATE BINARY LIMIT ? OFFSET ?`,
		page.SQL)
	assert.Equal(t, []any{remote.DefaultPageSize, 0}, page.Args)
	assert.Equal(t, `SELECT COUNT(*) FROM "people"`, page.Count)
	assert.Empty(t, page.CountArgs)
}

func TestCompile_SortHasStableTiebreaker(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	page, err := c.Compile(people, remote.Request{Page: 3, PageSize: 10, SortColumn: "city", SortDirection: table.SortDesc})
	require.NoError(t, err)

	assert.Contains(t, page.SQL, `ORDER BY "city" DESC, "id" ASC COLLATE BINARY`)
	assert.Equal(t, []any{10, 20}, page.Args)
}

func TestCompile_SortByKeyDesc(t *testing.T) {
	c := NewSQLCompiler(Postgres)
	page, err := c.Compile(people, remote.Request{SortColumn: "id", SortDirection: table.SortDesc})
	require.NoError(t, err)
	assert.Contains(t, page.SQL, `ORDER BY "id" DESC LIMIT $1 OFFSET $2`)
}

func TestCompile_UnknownSortIgnored(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	page, err := c.Compile(people, remote.Request{SortColumn: "salary; DROP TABLE people"})
	require.NoError(t, err)

	assert.NotContains(t, page.SQL, "salary")
	assert.Empty(t, page.Request.SortColumn)
}

func TestCompile_GlobalFilterParameterized(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	page, err := c.Compile(people, remote.Request{Filter: "50%_off"})
	require.NoError(t, err)

	assert.Contains(t, page.SQL,
		`WHERE (CAST("name" AS TEXT) LIKE ? ESCAPE '\' OR CAST("city" AS TEXT) LIKE ? ESCAPE '\' OR CAST("age" AS TEXT) LIKE ? ESCAPE '\')`)
	assert.NotContains(t, page.SQL, "50")
	pattern := `%50\%\_off%`
	assert.Equal(t, []any{pattern, pattern, pattern}, page.CountArgs)
	assert.Len(t, page.Args, 5)
}

func TestCompile_PostgresPlaceholdersAndColumnFilters(t *testing.T) {
	c := NewSQLCompiler(Postgres)
	tbl := people
	tbl.Searchable = []string{"name"}

	page, err := c.Compile(tbl, remote.Request{
		Filter:  "ann",
		Filters: map[string]string{"city": "oslo", "bogus": "x", "age": ""},
		Page:    2,
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "name", "city", "age" FROM "people" WHERE (CAST("name" AS TEXT) ILIKE $1 ESCAPE '\') AND CAST("city" AS TEXT) ILIKE $2 ESCAPE '\' ORDER BY "id" ASC LIMIT $3 OFFSET $4`,
		page.SQL)
	assert.Equal(t, []any{"%ann%", "%oslo%", remote.DefaultPageSize, remote.DefaultPageSize}, page.Args)
	assert.Equal(t, map[string]string{"city": "oslo"}, page.Request.Filters)
	assert.Contains(t, page.Count, `WHERE (CAST("name" AS TEXT) ILIKE $1`)
}

func TestCompile_Errors(t *testing.T) {
	c := NewSQLCompiler(SQLite)
	_, err := c.Compile(Table{}, remote.Request{})
	assert.Error(t, err)
	_, err = c.Compile(Table{Name: "t"}, remote.Request{})
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
}

func TestDialect_String(t *testing.T) {
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "postgres", Postgres.String())
}
