// Package scoring fetches lab and field performance data for a page from
// PageSpeed Insights and the Chrome UX Report.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const (
	// DefaultPSIEndpoint is the PageSpeed Insights runPagespeed endpoint
	DefaultPSIEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	// DefaultCrUXEndpoint is the Chrome UX Report queryRecord endpoint
	DefaultCrUXEndpoint = "https://chromeuxreport.googleapis.com/v1/records:queryRecord"

	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultConcurrency    = 10
	DefaultFieldCacheSize = 512
	DefaultFieldCacheTTL  = 6 * time.Hour

	servicePSI  = "psi"
	serviceCrUX = "crux"
)

// ErrNoAPIKey is returned when scoring is requested without an API key
var ErrNoAPIKey = errors.New("scoring API key is not configured")

// Config contains configuration options for the scoring client
type Config struct {
	// APIKey is the Google API key used for both services
	APIKey string
	// PSIEndpoint overrides the PageSpeed Insights endpoint
	PSIEndpoint string
	// CrUXEndpoint overrides the Chrome UX Report endpoint
	CrUXEndpoint string
	// Timeout bounds each individual call
	Timeout time.Duration
	// MaxRetries is the number of retries after the first failed call
	MaxRetries int
	// InitialBackoff is the wait before the first retry; it doubles on every retry
	InitialBackoff time.Duration
	// Concurrency bounds the number of calls in flight for one request
	Concurrency int
	// FieldCacheSize is the number of field data records kept in memory
	FieldCacheSize int
	// FieldCacheTTL is how long field data is cached
	FieldCacheTTL time.Duration
	// Client is the HTTP client to use
	Client *http.Client
}

func (c *Config) setDefaults() {
	if c.PSIEndpoint == "" {
		c.PSIEndpoint = DefaultPSIEndpoint
	}
	if c.CrUXEndpoint == "" {
		c.CrUXEndpoint = DefaultCrUXEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.FieldCacheSize <= 0 {
		c.FieldCacheSize = DefaultFieldCacheSize
	}
	if c.FieldCacheTTL <= 0 {
		c.FieldCacheTTL = DefaultFieldCacheTTL
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
}

// Client talks to the scoring services
type Client struct {
	cfg     Config
	log     logger.Logger
	metrics *metrics.Metrics
	field   *expirable.LRU[fieldKey, models.FieldData]
}

type fieldKey struct {
	origin     string
	formFactor string
}

// New creates a scoring client. MaxRetries is taken as given, so pass
// DefaultMaxRetries for the standard behavior.
func New(cfg Config, log logger.Logger, m *metrics.Metrics) *Client {
	cfg.setDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:     cfg,
		log:     log,
		metrics: m,
		field:   expirable.NewLRU[fieldKey, models.FieldData](cfg.FieldCacheSize, nil, cfg.FieldCacheTTL),
	}
}

// Score fetches lab scores and field data for every platform concurrently.
// Platforms whose lab scores cannot be fetched after all retries are left
// out of Lab; field data failures are reported as FieldUnavailable. Score
// only fails when no API key is configured.
func (c *Client) Score(ctx context.Context, pageURL string) (*models.Scores, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	lab := make([]*models.LabScores, len(models.Platforms))
	field := make([]models.FieldData, len(models.Platforms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, platform := range models.Platforms {
		g.Go(func() error {
			scores, err := c.LabScores(gctx, pageURL, platform)
			if err != nil {
				c.log.Warn("Lab scores unavailable",
					logger.String("url", pageURL),
					logger.String("platform", string(platform)),
					logger.Error(err),
				)
				return nil
			}
			lab[i] = scores
			return nil
		})
		g.Go(func() error {
			data, err := c.FieldData(gctx, pageURL, platform)
			if err != nil {
				c.log.Warn("Field data unavailable",
					logger.String("url", pageURL),
					logger.String("platform", string(platform)),
					logger.Error(err),
				)
				data = models.FieldData{Status: models.FieldUnavailable}
			}
			field[i] = data
			return nil
		})
	}
	_ = g.Wait()

	result := &models.Scores{
		Lab:   make(map[models.Platform]models.LabScores, len(models.Platforms)),
		Field: make(map[models.Platform]models.FieldData, len(models.Platforms)),
	}
	for i, platform := range models.Platforms {
		if lab[i] != nil {
			result.Lab[platform] = *lab[i]
		}
		result.Field[platform] = field[i]
	}
	return result, nil
}

// retry runs op with exponential backoff until it succeeds, returns a
// permanent error, the retries are exhausted or ctx is done. Each attempt
// gets its own timeout.
func (c *Client) retry(ctx context.Context, service string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.cfg.InitialBackoff << c.cfg.MaxRetries
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	attempt := func() error {
		actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		err := op(actx)
		c.metrics.ScoringAttempt(service, err)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Info("Retrying scoring call",
			logger.String("service", service),
			logger.Duration("wait", wait),
			logger.Error(err),
		)
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	return nil
}
