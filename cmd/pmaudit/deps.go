package main

import (
	"context"
	"fmt"

	"github.com/mamamialezatoz/go-pmaudit/internal/config"
	"github.com/mamamialezatoz/go-pmaudit/internal/fetcher"
	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
	"github.com/mamamialezatoz/go-pmaudit/internal/requestlog"
	"github.com/mamamialezatoz/go-pmaudit/internal/scoring"
	"github.com/mamamialezatoz/go-pmaudit/pkg/audit"
)

// deps are the components shared by the analyze and serve commands
type deps struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
	store   *policy.Store
	auditor *audit.Auditor
}

// loadConfig reads the configuration and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logger.Level = "debug"
		cfg.Server.Debug = true
	}
	return cfg, nil
}

// newDeps wires the policy store, fetcher, scorer and request log into an auditor
func newDeps(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*deps, error) {
	store, err := policy.Open(ctx, policyConfig(cfg.Policy), log)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	snap := store.Current()
	m.PolicyReloaded(nil, snap.Len())
	store.OnSwap(func(_, current *policy.Snapshot) {
		m.PolicyReloaded(nil, current.Len())
	})
	log.Info("Policy loaded",
		logger.String("version", snap.Version()),
		logger.String("digest", snap.Digest()),
		logger.Int("owners", snap.Len()),
	)

	options := []audit.Option{
		audit.WithPolicyStore(store),
		audit.WithFetcher(fetcher.New(fetcher.Config{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout,
			MaxBodySize: cfg.Fetch.MaxBodySize,
		})),
		audit.WithLogger(log),
		audit.WithMetrics(m),
	}
	if cfg.Scoring.APIKey != "" {
		options = append(options, audit.WithScorer(scoring.New(scoringConfig(cfg.Scoring), log, m)))
	} else {
		log.Debug("Scoring disabled, no API key configured")
	}
	if cfg.RequestLog.Enabled {
		options = append(options, audit.WithRequestLog(requestlog.New(cfg.RequestLog.Dir)))
	}

	auditor, err := audit.New(options...)
	if err != nil {
		return nil, err
	}

	return &deps{cfg: cfg, log: log, metrics: m, store: store, auditor: auditor}, nil
}

func policyConfig(pc config.PolicyConfig) *policy.Config {
	cfg := policy.DefaultConfig()
	cfg.Path = pc.Path
	cfg.URL = pc.URL
	if pc.CacheDir != "" {
		cfg.CacheDir = pc.CacheDir
	}
	if pc.CacheExpiry > 0 {
		cfg.CacheExpiry = pc.CacheExpiry
	}
	return cfg
}

func scoringConfig(sc config.ScoringConfig) scoring.Config {
	return scoring.Config{
		APIKey:         sc.APIKey,
		Timeout:        sc.Timeout,
		MaxRetries:     sc.MaxRetries,
		InitialBackoff: sc.InitialBackoff,
		Concurrency:    sc.Concurrency,
		FieldCacheSize: sc.FieldCacheSize,
		FieldCacheTTL:  sc.FieldCacheTTL,
	}
}
