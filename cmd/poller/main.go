// Package main is the entry point for the BloomWatch site poller.
//
// The poller re-analyzes every active monitoring site on a cron cadence and
// persists one snapshot per site per pass. An initial pass runs immediately on
// startup so a fresh deployment does not wait for the first cron tick.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"bloomwatch/internal/config"
	"bloomwatch/internal/db"
	"bloomwatch/internal/external"
	"bloomwatch/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("bloomwatch poller starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"cron", cfg.Poller.CronSpec,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	httpClient := &http.Client{Timeout: cfg.Upstream.RequestTimeout}
	weather := external.NewWeatherClient(httpClient, cfg.Upstream.WeatherBaseURL, cfg.Upstream.ArchiveBaseURL)
	landCover := external.NewLandCoverClient(httpClient, cfg.Upstream.LandCoverBaseURL)

	var satellite *external.SatelliteClient
	if cfg.Upstream.SatelliteBaseURL != "" {
		satellite = external.NewSatelliteClient(httpClient, cfg.Upstream.SatelliteBaseURL, cfg.Upstream.SatelliteAPIKey)
	}

	fetcher := external.NewInputFetcher(weather, landCover, satellite, logger)

	poller := scheduler.NewSitePoller(scheduler.SitePollerConfig{
		Fetcher:        fetcher,
		Sites:          db.NewSiteRepository(pool),
		Snapshots:      db.NewSnapshotRepository(pool),
		SiteTimeout:    cfg.Poller.SiteTimeout,
		MaxConcurrency: cfg.Poller.MaxConcurrency,
		Logger:         logger,
	})

	c := cron.New()
	if _, err := c.AddFunc(cfg.Poller.CronSpec, func() {
		if _, err := poller.Poll(ctx); err != nil {
			logger.Error("polling pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling polling pass: %w", err)
	}
	c.Start()

	// Initial pass so a fresh deployment does not wait for the first tick.
	if _, err := poller.Poll(ctx); err != nil {
		logger.Error("initial polling pass failed", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Stop scheduling and wait for an in-flight pass to finish.
	<-c.Stop().Done()

	logger.Info("poller stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
