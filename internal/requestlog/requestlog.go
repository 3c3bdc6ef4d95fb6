// Package requestlog keeps one plain text file per audited URL.
package requestlog

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const timestampLayout = "20060102_150405"

var nonWordRegex = regexp.MustCompile(`\W+`)

// Writer writes request logs into a directory
type Writer struct {
	dir string
	now func() time.Time
}

// New creates a writer for dir. The directory is created on first write.
func New(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// FileName builds the log file name for rawURL: the host and path with every
// run of non-word characters replaced by "_", then a timestamp
func FileName(rawURL string, at time.Time) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Host + u.Path
	}
	return fmt.Sprintf("%s_%s.log", nonWordRegex.ReplaceAllString(name, "_"), at.Format(timestampLayout))
}

// Write records the cache diagnostics of one analysis and returns the path
// of the file written
func (w *Writer) Write(rawURL string, cache models.CacheStatus) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create request log directory: %w", err)
	}

	data := fmt.Sprintf("Cache Status: %s\n%s\nCache Plan: %s", cache.Cloudflare, cache.BigScoots, cache.Plan)
	content := fmt.Sprintf("URL: %s\n\nData:\n%s\n", rawURL, data)

	path := filepath.Join(w.dir, FileName(rawURL, w.now()))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write request log: %w", err)
	}
	return path, nil
}
