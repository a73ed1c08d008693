package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "availmon.yaml")
	full := fmt.Sprintf("logging:\n  file: %s\n  development: false\n  level: error\n%s",
		filepath.Join(dir, "app.log"), body)
	require.NoError(t, os.WriteFile(path, []byte(full), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHistoryCommand(t *testing.T) {
	t.Parallel()

	historyPath := filepath.Join(t.TempDir(), "booking_history.json")
	require.NoError(t, os.WriteFile(historyPath, []byte(`[
  {"count": 3, "timestamp": "2024-01-01T10:00:00.123456", "url": "https://example.com"},
  {"count": 5, "timestamp": "2024-01-01T11:00:00Z", "url": "https://example.com"},
  {"count": 1, "timestamp": "2024-01-01T12:00:00Z", "url": "https://example.com"}
]`), 0o600))
	cfg := writeConfig(t, "history:\n  path: "+historyPath+"\n")

	out, err := execute(t, "--config", cfg, "history", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-01T11:00:00Z")
	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "-4")
	assert.NotContains(t, out, "10:00:00.123456")
	assert.Contains(t, out, "2 of 3 entries")
}

func TestHistoryCommandEmpty(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "history:\n  path: "+filepath.Join(t.TempDir(), "none.json")+"\n")
	out, err := execute(t, "--config", cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 0 entries")
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<label class="checkbox_container"><span>Available to book (7)</span></label>`))
	}))
	t.Cleanup(srv.Close)

	historyPath := filepath.Join(t.TempDir(), "history.json")
	cfg := writeConfig(t, fmt.Sprintf("target:\n  url: %s\nfetcher:\n  engine: static\nhistory:\n  path: %s\n",
		srv.URL, historyPath))

	out, err := execute(t, "--config", cfg, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Available to book (7): 7")
	assert.NoFileExists(t, historyPath)
}

func TestCheckCommandMarkerMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Fully booked</body></html>`))
	}))
	t.Cleanup(srv.Close)

	cfg := writeConfig(t, fmt.Sprintf("target:\n  url: %s\nfetcher:\n  engine: static\n", srv.URL))
	out, err := execute(t, "--config", cfg, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "poll:\n  interval: 0s\n")
	_, err := execute(t, "--config", cfg, "history")
	require.ErrorContains(t, err, "poll.interval")
}
