package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = `
version: "12"
entries:
  plugins/mega-menu:
    - mega-menu
    - lazyload
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(testPolicy), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("entries:\n  widgets/x: [a]\n"), 0o644))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, `version "12", 1 owners`)

	_, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid policy")

	_, err = execute(t, "validate", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestPullStatusClear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testPolicy))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	flags := []string{"--url", srv.URL, "--cache-dir", cacheDir}

	out, err := execute(t, append([]string{"status"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Not found")
	assert.Contains(t, out, "not cached, run pull")

	out, err = execute(t, append([]string{"pull"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `Policy version "12" with 1 owners cached successfully!`)
	assert.Contains(t, out, "expires in")
	assert.Contains(t, out, `Active policy (cache): version "12"`)
	assert.FileExists(t, filepath.Join(cacheDir, "policy.yaml"))

	out, err = execute(t, append([]string{"clear"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")
	assert.NoFileExists(t, filepath.Join(cacheDir, "policy.yaml"))
}

func TestPull_RequiresURL(t *testing.T) {
	_, err := execute(t, "pull", "--cache-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestStatus_BuiltInPolicy(t *testing.T) {
	out, err := execute(t, "status", "--cache-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Active policy (built-in)")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30.0 seconds"},
		{90 * time.Second, "1.5 minutes"},
		{3 * time.Hour, "3.0 hours"},
		{72 * time.Hour, "3 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
