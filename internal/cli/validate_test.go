package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/compiler"
)

func runValidateCmd(t *testing.T, format string, path string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ValidDirectory(t *testing.T) {
	out, err := runValidateCmd(t, "text", "testdata/tables")
	require.NoError(t, err)
	assert.Equal(t, "✓ All tables valid (2)\n", out)
}

func TestValidate_SingleFile(t *testing.T) {
	out, err := runValidateCmd(t, "json", "testdata/tables/people.cue")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"people", "notes"}, resp.Data.Tables)
}

func TestValidate_InvalidTable(t *testing.T) {
	out, err := runValidateCmd(t, "text", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "4 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E110: broken.columns[0].width")
	assert.Contains(t, out, "E104: broken.columns[1].id")
	assert.Contains(t, out, "E120: broken.options.resize_mode")
	assert.Contains(t, out, "E122: broken.options.fuzzy.keys[0]")
}

func TestValidate_InvalidTableJSON(t *testing.T) {
	out, err := runValidateCmd(t, "json", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, compiler.ErrInvalidWidth, resp.Error.Code)

	codes := make([]string, len(resp.Data.Errors))
	for i, e := range resp.Data.Errors {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{
		compiler.ErrInvalidWidth,
		compiler.ErrDuplicateID,
		compiler.ErrInvalidResizeMode,
		compiler.ErrUnknownFuzzyKey,
	}, codes)
}

func TestValidate_CompileErrorReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.cue")
	src := `table: pins: columns: [{id: "a", pinned: "top"}]` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	out, err := runValidateCmd(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrInvalidPinSide)
	assert.Contains(t, out, `unknown pin side "top"`)
	assert.Contains(t, out, "line 1")
}

func TestValidate_MissingPath(t *testing.T) {
	out, err := runValidateCmd(t, "text", "testdata/does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, err := runValidateCmd(t, "json", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoFiles, resp.Error.Code)
}

func TestLoadSpecs_Directory(t *testing.T) {
	result, errs := LoadSpecs("testdata/tables", LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FileCount)
	assert.Equal(t, []string{"people", "notes"}, result.Names())

	people, ok := result.Find("people")
	require.True(t, ok)
	require.Len(t, people.Columns, 3)
	assert.Equal(t, "address.city", people.Columns[2].Accessor)
	assert.Equal(t, "80px", people.Columns[1].Width)

	_, ok = result.Find("orders")
	assert.False(t, ok)
}

func TestLoadSpecs_NoTableField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cue")
	require.NoError(t, os.WriteFile(path, []byte("other: 1\n"), 0644))

	result, errs := LoadSpecs(path, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoTables, codeOf(errs[0]))
}

func TestLoadSpecs_SyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("table: {\n"), 0644))

	result, errs := LoadSpecs(path, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeBuildFailed, codeOf(errs[0]))
}

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec("testdata/tables", "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", spec.Name)
	assert.True(t, spec.Options.Virtual.Enabled)

	_, err = LoadSpec("testdata/tables", "orders")
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownTable, codeOf(err))
	assert.Contains(t, err.Error(), "have people, notes")

	_, err = LoadSpec("testdata/invalid", "broken")
	require.Error(t, err)
	assert.Equal(t, compiler.ErrInvalidWidth, codeOf(err))
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"columns", compiler.ErrNoColumns},
		{"columns[2].id", compiler.ErrColumnIDEmpty},
		{"columns[0].width", compiler.ErrInvalidWidth},
		{"columns[1].pinned", compiler.ErrInvalidPinSide},
		{"cue", ErrCodeBuildFailed},
		{"options", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
