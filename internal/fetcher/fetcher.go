// Package fetcher downloads the pages that are audited.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is a desktop browser agent, so that caches and
	// optimization plugins serve the page a visitor would get
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

	// DefaultTimeout bounds a single page fetch
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a page is read
	DefaultMaxBodySize = 10 << 20
)

// ErrUnexpectedStatus is returned when the page answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status code")

// StatusError carries the status code of a failed fetch
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Page is a fetched page
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Config contains configuration options for the fetcher
type Config struct {
	// UserAgent sent with every request
	UserAgent string
	// Timeout of a single fetch, including reading the body
	Timeout time.Duration
	// MaxBodySize limits the maximum body size to read
	MaxBodySize int64
	// Client is the HTTP client to use. A client with Timeout is built when nil.
	Client *http.Client
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		UserAgent:   DefaultUserAgent,
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Fetcher retrieves pages over HTTP
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// New creates a fetcher, filling unset fields from DefaultConfig
func New(cfg Config) *Fetcher {
	defaults := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{cfg: cfg, client: client}
}

// Fetch downloads rawURL. Transport failures and non-2xx answers are
// returned as errors; a non-2xx error wraps ErrUnexpectedStatus.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return &Page{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}
