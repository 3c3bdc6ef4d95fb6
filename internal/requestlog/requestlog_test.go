package requestlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

func TestFileName(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, "example_com_blog_post_20240309_140507.log", FileName("https://example.com/blog/post?perfmattersoff", at))
	assert.Equal(t, "www_example_com_20240309_140507.log", FileName("https://www.example.com", at))
}

func TestWrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	w := New(dir)
	w.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	path, err := w.Write("https://example.com/?nocache", models.CacheStatus{
		Cloudflare: "CF-CACHE: HIT",
		BigScoots:  "X-Bigscoots-Cache-Status: Not Found",
		Plan:       "Performance Plus",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example_com__20240309_140507.log"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "URL: https://example.com/?nocache\n\nData:\n"+
		"Cache Status: CF-CACHE: HIT\nX-Bigscoots-Cache-Status: Not Found\nCache Plan: Performance Plus\n", string(data))
}
