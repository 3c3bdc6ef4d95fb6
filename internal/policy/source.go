package policy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultCacheDir is the default directory, under the user cache dir, where a downloaded policy is kept
	DefaultCacheDir = "go-pmaudit"

	// DefaultCacheExpiry is the default expiry time for a downloaded policy
	DefaultCacheExpiry = 24 * time.Hour

	cacheFileName = "policy.yaml"

	maxPolicySize = 4 << 20
)

// Config describes where the policy table comes from
type Config struct {
	// Path is a local policy file. Ignored when URL is set.
	Path string

	// URL is a remote policy document, cached on disk
	URL string

	// CacheDir is the directory where a downloaded policy is cached
	CacheDir string

	// CacheExpiry is how long to keep a downloaded policy before fetching it again
	CacheExpiry time.Duration

	// ForceDownload forces a new download even if the cache is valid
	ForceDownload bool

	// DisableCache disables caching altogether
	DisableCache bool

	// Client is the HTTP client to use for downloads
	Client *http.Client
}

// DefaultConfig returns a configuration that serves the built-in table
func DefaultConfig() *Config {
	return &Config{
		CacheDir:    filepath.Join(userCacheDir(), DefaultCacheDir),
		CacheExpiry: DefaultCacheExpiry,
		Client:      http.DefaultClient,
	}
}

// userCacheDir returns the user's cache directory
func userCacheDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return cacheDir
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache")
	}
	return os.TempDir()
}

// CachePath is where a downloaded policy is stored
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

// Load reads the policy table from the configured source: a remote URL, a
// local file, or the built-in table when neither is set
func Load(ctx context.Context, cfg *Config) (*Snapshot, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch {
	case cfg.URL != "":
		data, err := fetchCached(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return Parse(data)
	case cfg.Path != "":
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		return Parse(data)
	default:
		return Default()
	}
}

// fetchCached returns the remote policy, downloading it only when the cache
// is missing, expired, disabled or a download is forced
func fetchCached(ctx context.Context, cfg *Config) ([]byte, error) {
	if cfg.DisableCache {
		return download(ctx, cfg)
	}

	if !cfg.ForceDownload {
		if info := Inspect(cfg); info.Exists && !info.Expired {
			data, err := os.ReadFile(info.Path)
			if err == nil {
				return data, nil
			}
		}
	}

	data, err := download(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Only cache documents that parse
	if _, err := Parse(data); err != nil {
		return nil, fmt.Errorf("downloaded policy is invalid: %w", err)
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := writeFileAtomic(cfg.CachePath(), data); err != nil {
		return nil, err
	}
	return data, nil
}

// download fetches the policy document from the configured URL
func download(ctx context.Context, cfg *Config) ([]byte, error) {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download policy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPolicySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy body: %w", err)
	}
	return data, nil
}

// CacheInfo describes the state of the policy cache
type CacheInfo struct {
	Path    string
	Exists  bool
	ModTime time.Time
	Size    int64
	Expired bool
}

// Inspect reports on the cached policy file
func Inspect(cfg *Config) CacheInfo {
	info := CacheInfo{Path: cfg.CachePath()}

	stat, err := os.Stat(info.Path)
	if err != nil || stat.IsDir() {
		return info
	}

	info.Exists = true
	info.ModTime = stat.ModTime()
	info.Size = stat.Size()
	info.Expired = cfg.CacheExpiry > 0 && time.Since(stat.ModTime()) >= cfg.CacheExpiry
	return info
}

// ClearCache removes the cached policy file
func ClearCache(cfg *Config) error {
	err := os.Remove(cfg.CachePath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear policy cache: %w", err)
	}
	return nil
}

// Save validates a policy document and writes it to path. The file is only
// replaced when the document parses.
func Save(path string, data []byte) (*Snapshot, error) {
	snap, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}
	return snap, nil
}

// writeFileAtomic writes through a temporary file in the same directory
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".policy-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write policy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write policy: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace policy file: %w", err)
	}
	return nil
}
