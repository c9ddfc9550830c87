package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/config"
)

// seedOptions returns root options whose database lives in a temp dir.
func seedOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Database = filepath.Join(t.TempDir(), "tablegrid.db")
	return &RootOptions{Format: format, Config: cfg}
}

func runSeedCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSeedCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSeed_CreatesDataset(t *testing.T) {
	opts := seedOptions(t, "json")
	out, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, SeedResult{
		Dataset:  "people",
		Database: opts.Config.Server.Database,
		Columns:  []string{"name", "city"},
		Rows:     4,
	}, resp.Data)
}

func TestSeed_TextOutput(t *testing.T) {
	opts := seedOptions(t, "text")
	out, err := runSeedCmd(t, opts, "testdata/tables", "notes", "testdata/notes.json")
	require.NoError(t, err)
	assert.Equal(t, "✓ Seeded notes with 10 row(s) ("+opts.Config.Server.Database+")\n", out)
}

func TestSeed_ExistingDatasetNeedsReplace(t *testing.T) {
	opts := seedOptions(t, "text")
	_, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml")
	require.NoError(t, err)

	out, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")

	_, err = runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml", "--replace")
	require.NoError(t, err)
}

func TestSeed_ReplaceWithoutExistingDataset(t *testing.T) {
	opts := seedOptions(t, "text")
	_, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml", "--replace")
	require.NoError(t, err)
}

func TestSeed_DBFlagOverridesConfig(t *testing.T) {
	opts := seedOptions(t, "json")
	path := filepath.Join(t.TempDir(), "other.db")
	out, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "other.db")
}

func TestSeed_BadRowsFile(t *testing.T) {
	opts := seedOptions(t, "text")
	out, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]")
}

func TestSeedThenView_ServerPaging(t *testing.T) {
	opts := seedOptions(t, "text")
	_, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml")
	require.NoError(t, err)

	viewOpts := &RootOptions{Format: "json", Config: opts.Config}
	buf := &bytes.Buffer{}
	cmd := NewViewCommand(viewOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"testdata/tables", "people", "--sort", "name"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data ViewResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	v := resp.Data
	assert.Equal(t, []string{"Ada", "Barbara", "Grace", "Linus"}, columnValues(v.Rows, "name"))
	assert.Equal(t, []string{"London", "Boston", "Arlington", "Helsinki"}, columnValues(v.Rows, "city"))
	assert.Equal(t, []string{"2", "4", "3", "1"}, columnValues(v.Rows, "id"))
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 1, v.TotalPages)
}

func TestSeedThenView_ServerFilter(t *testing.T) {
	opts := seedOptions(t, "text")
	_, err := runSeedCmd(t, opts, "testdata/tables", "people", "testdata/people.yaml")
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	cmd := NewViewCommand(&RootOptions{Format: "text", Config: opts.Config})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"testdata/tables", "people", "--filter", "grace"})
	require.NoError(t, cmd.Execute())

	lines := trimmedLines(buf.String())
	require.Len(t, lines, 4)
	assert.Equal(t, "3      | Grace      | Arlington", lines[2])
	assert.Equal(t, "(rows 0-0, page 1/1, 1 total)", lines[3])
}

func TestView_MissingDataset(t *testing.T) {
	opts := seedOptions(t, "text")
	buf := &bytes.Buffer{}
	cmd := NewViewCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"testdata/tables", "people"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
