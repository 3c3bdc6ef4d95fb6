// Package audit checks WordPress pages for scripts that a performance
// plugin delays but that should be excluded from delay, based on a policy
// table of known plugin and theme assets.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mamamialezatoz/go-pmaudit/internal/detection"
	"github.com/mamamialezatoz/go-pmaudit/internal/fetcher"
	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/parser"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

// PageFetcher downloads a page
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Scorer looks up lab and field scores for a page
type Scorer interface {
	Score(ctx context.Context, pageURL string) (*models.Scores, error)
}

// Result is the outcome of matching one page against the policy table
type Result struct {
	Plugins          []string
	Themes           []string
	Recommendations  models.Recommendations
	Inventory        models.Inventory
	PerformanceTools string
}

// AnalyzeOptions controls a URL analysis
type AnalyzeOptions struct {
	// Variant selects how the page is requested
	Variant Variant
	// Scores also fetches lab and field scores
	Scores bool
}

// Auditor audits pages against a policy table
type Auditor struct {
	config *Config
	log    logger.Logger
}

// New creates a new auditor. Without a policy option the built-in table is used.
func New(options ...Option) (*Auditor, error) {
	config := &Config{}
	for _, option := range options {
		option(config)
	}

	if config.PolicyStore == nil && config.Policy == nil {
		snap, err := policy.Default()
		if err != nil {
			return nil, fmt.Errorf("could not load built-in policy: %w", err)
		}
		config.Policy = snap
	}
	if config.Fetcher == nil {
		config.Fetcher = fetcher.New(fetcher.DefaultConfig())
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Auditor{config: config, log: log}, nil
}

// Policy returns the policy table the next analysis will use
func (a *Auditor) Policy() *policy.Snapshot {
	if a.config.PolicyStore != nil {
		return a.config.PolicyStore.Current()
	}
	return a.config.Policy
}

// Analyze matches a parsed page against the policy table. lowerText is the
// lowercased page markup and raw the markup as received. It never fails:
// pages without scripts or without known owners produce no recommendations.
func (a *Auditor) Analyze(doc *goquery.Document, lowerText string, raw []byte) Result {
	return a.analyze(doc, lowerText, raw, a.Policy())
}

func (a *Auditor) analyze(doc *goquery.Document, lowerText string, raw []byte, table *policy.Snapshot) Result {
	inv := parser.ExtractInventory(doc)
	plugins, themes := parser.DetectOwners(raw)

	result := Result{
		Plugins:         plugins,
		Themes:          themes,
		Recommendations: detection.Aggregate(inv.Scripts, plugins, themes, table),
		Inventory:       inv,
	}
	if !a.config.DisablePerformanceTools {
		result.PerformanceTools = detection.PerformanceTools(lowerText)
	}
	return result
}

// AnalyzePage runs the full analysis on a fetched page
func (a *Auditor) AnalyzePage(page *fetcher.Page) (*models.AnalysisResult, error) {
	start := time.Now()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		a.config.Metrics.AnalysisFailed("parse_error")
		return nil, fmt.Errorf("HTML parsing failed: %w", err)
	}

	table := a.Policy()
	res := a.analyze(doc, strings.ToLower(string(page.Body)), page.Body, table)

	result := &models.AnalysisResult{
		URL:              page.URL,
		Plugins:          res.Plugins,
		Themes:           res.Themes,
		Findings:         res.Recommendations,
		Inventory:        res.Inventory,
		PerformanceTools: res.PerformanceTools,
		StatusCode:       page.StatusCode,
		ResponseTime:     page.Elapsed.Milliseconds(),
		PolicyVersion:    table.Version(),
	}
	if !a.config.DisableCacheDiagnostics {
		result.Cache = detection.CacheStatusFromHeaders(page.Header)
	}

	a.config.Metrics.ObserveAnalysis(result.Findings, time.Since(start))
	a.log.Info("Page analyzed",
		logger.String("url", page.URL),
		logger.Int("plugins", len(result.Plugins)),
		logger.Int("themes", len(result.Themes)),
		logger.Int("recommendations", len(result.Findings)),
		logger.String("performance_tools", result.PerformanceTools),
		logger.String("policy_version", result.PolicyVersion),
	)

	if a.config.RequestLog != nil {
		if path, err := a.config.RequestLog.Write(page.URL, result.Cache); err != nil {
			a.log.Warn("Failed to write request log", logger.String("url", page.URL), logger.Error(err))
		} else {
			a.log.Debug("Request logged", logger.String("path", path))
		}
	}

	return result, nil
}

// AnalyzeURL validates rawURL, fetches the requested variant of the page
// and analyzes it. Invalid URLs fail with ErrInvalidURL before any request
// is made and download failures wrap ErrFetchFailed. Scoring failures never
// fail the analysis.
func (a *Auditor) AnalyzeURL(ctx context.Context, rawURL string, opts AnalyzeOptions) (*models.AnalysisResult, error) {
	if err := ValidateURL(rawURL); err != nil {
		a.config.Metrics.AnalysisFailed("invalid_url")
		return nil, err
	}
	target := ApplyVariant(rawURL, opts.Variant)

	a.log.Info("Fetching page", logger.String("url", target))
	page, err := a.config.Fetcher.Fetch(ctx, target)
	if err != nil {
		a.config.Metrics.AnalysisFailed("fetch_error")
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	a.config.Metrics.ObserveFetch(page.Elapsed)

	result, err := a.AnalyzePage(page)
	if err != nil {
		return nil, err
	}

	if opts.Scores && a.config.Scorer != nil {
		scores, err := a.config.Scorer.Score(ctx, rawURL)
		if err != nil {
			a.log.Warn("Scoring skipped", logger.String("url", rawURL), logger.Error(err))
		} else {
			result.Scores = scores
		}
	}

	return result, nil
}
