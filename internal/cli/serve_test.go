package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tablegrid/internal/remote"
)

// startServe runs the server in the background and returns its base URL.
func startServe(t *testing.T, opts *ServeOptions) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, opts, ready) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	select {
	case addr := <-ready:
		return "http://" + addr
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	return ""
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestServe_ServesSeededDataset(t *testing.T) {
	root := seedOptions(t, "text")
	_, err := runSeedCmd(t, root, "testdata/tables", "people", "testdata/people.yaml")
	require.NoError(t, err)

	base := startServe(t, &ServeOptions{RootOptions: root, Addr: "127.0.0.1:0"})

	var health map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, base+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])

	var page struct {
		Rows       []map[string]any `json:"rows"`
		TotalRows  int64            `json:"total_rows"`
		Page       int              `json:"page"`
		PageSize   int              `json:"page_size"`
		TotalPages int              `json:"total_pages"`
	}
	status := getJSON(t, base+"/datasets/people/rows?sort=name&dir=desc&page_size=2", &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(4), page.TotalRows)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Linus", page.Rows[0]["name"])
	assert.Equal(t, "Grace", page.Rows[1]["name"])
}

func TestServe_UnknownDataset(t *testing.T) {
	root := seedOptions(t, "text")
	base := startServe(t, &ServeOptions{RootOptions: root, Addr: "127.0.0.1:0"})

	var body remote.ErrorResponse
	status := getJSON(t, base+"/datasets/missing/rows", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestServe_PostgresRequiresSpecs(t *testing.T) {
	root := seedOptions(t, "text")
	root.Config.Server.Database = "postgres://localhost:5432/tablegrid"

	err := runServe(context.Background(), &ServeOptions{RootOptions: root, Addr: "127.0.0.1:0"}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--specs is required")
}

func TestServe_BadSpecs(t *testing.T) {
	root := seedOptions(t, "text")
	err := runServe(context.Background(), &ServeOptions{RootOptions: root, Specs: "testdata/missing"}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
