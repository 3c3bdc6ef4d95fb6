package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mamamialezatoz/go-pmaudit/internal/api"
	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("service", "pmaudit"))

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	d, err := newDeps(ctx, cfg, log, m)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Analyzer:    d.auditor,
		Policy:      d.store,
		Metrics:     m,
		Log:         log,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	server := api.NewServer(api.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, log)

	var watcher *policy.Watcher
	if cfg.Policy.Watch && cfg.Policy.Path != "" {
		if watcher, err = policy.NewWatcher(d.store, log); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
		log.Info("Watching policy file", logger.String("path", cfg.Policy.Path))
	}

	log.Info("Starting audit API",
		logger.String("addr", cfg.Server.Addr),
		logger.Bool("scoring", cfg.Scoring.APIKey != ""),
		logger.Bool("request_log", cfg.RequestLog.Enabled),
	)
	return g.Wait()
}
