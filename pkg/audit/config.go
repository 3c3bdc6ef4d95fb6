package audit

import (
	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
	"github.com/mamamialezatoz/go-pmaudit/internal/requestlog"
)

// Config contains configuration options for the auditor
type Config struct {
	// Policy is a fixed policy table. Ignored when PolicyStore is set.
	Policy *policy.Snapshot
	// PolicyStore serves the current policy table on every analysis
	PolicyStore *policy.Store
	// Fetcher downloads pages for AnalyzeURL
	Fetcher PageFetcher
	// Scorer looks up lab and field scores when requested
	Scorer Scorer
	// Logger receives progress and diagnostics
	Logger logger.Logger
	// Metrics records analysis outcomes
	Metrics *metrics.Metrics
	// RequestLog, when set, writes a file for every analyzed URL
	RequestLog *requestlog.Writer
	// DisableCacheDiagnostics skips reading cache headers
	DisableCacheDiagnostics bool
	// DisablePerformanceTools skips the optimization plugin summary
	DisablePerformanceTools bool
}

// Option is a function that configures the auditor
type Option func(*Config)

// WithPolicy sets a fixed policy table
func WithPolicy(snap *policy.Snapshot) Option {
	return func(c *Config) {
		c.Policy = snap
	}
}

// WithPolicyStore serves the policy table from a reloadable store
func WithPolicyStore(store *policy.Store) Option {
	return func(c *Config) {
		c.PolicyStore = store
	}
}

// WithFetcher sets the page fetcher
func WithFetcher(f PageFetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithScorer sets the scoring client
func WithScorer(s Scorer) Option {
	return func(c *Config) {
		c.Scorer = s
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithRequestLog writes a request log file after every analysis
func WithRequestLog(w *requestlog.Writer) Option {
	return func(c *Config) {
		c.RequestLog = w
	}
}

// WithoutCacheDiagnostics disables cache header diagnostics
func WithoutCacheDiagnostics() Option {
	return func(c *Config) {
		c.DisableCacheDiagnostics = true
	}
}

// WithoutPerformanceTools disables the optimization plugin summary
func WithoutPerformanceTools() Option {
	return func(c *Config) {
		c.DisablePerformanceTools = true
	}
}
