// Package main is the entry point for the BloomWatch API server.
//
// It loads configuration, connects the PostgreSQL pool, wires the upstream
// data-source clients, builds the HTTP server with the core chassis
// (middleware, routing, health checks), and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"bloomwatch/internal/api/handlers"
	"bloomwatch/internal/config"
	"bloomwatch/internal/core"
	"bloomwatch/internal/db"
	"bloomwatch/internal/external"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("bloomwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	siteRepo := db.NewSiteRepository(pool)
	snapshotRepo := db.NewSnapshotRepository(pool)

	httpClient := &http.Client{Timeout: cfg.Upstream.RequestTimeout}
	weather := external.NewWeatherClient(httpClient, cfg.Upstream.WeatherBaseURL, cfg.Upstream.ArchiveBaseURL)
	landCover := external.NewLandCoverClient(httpClient, cfg.Upstream.LandCoverBaseURL)

	var satellite *external.SatelliteClient
	if cfg.Upstream.SatelliteBaseURL != "" {
		satellite = external.NewSatelliteClient(httpClient, cfg.Upstream.SatelliteBaseURL, cfg.Upstream.SatelliteAPIKey)
	} else {
		logger.Info("satellite upstream not configured; analyses proceed without cell-density estimates")
	}

	fetcher := external.NewInputFetcher(weather, landCover, satellite, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Closers = append(srv.Closers, pool)
	srv.HealthProbes = append(srv.HealthProbes, db.NewPoolProbe(pool))

	analysisHandler := handlers.NewAnalysisHandler(fetcher, siteRepo, snapshotRepo, srv.Validator, logger)
	siteHandler := handlers.NewSiteHandler(
		siteRepo, snapshotRepo, srv.Validator, logger,
		cfg.Security.AdminAPIKey, cfg.Server.APIExternalURL,
	)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { analysisHandler.RegisterRoutes(r) },
		func(r chi.Router) { siteHandler.RegisterRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
