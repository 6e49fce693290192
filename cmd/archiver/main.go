// Package main is the entry point for the BloomWatch snapshot archiver.
//
// The archiver is a one-shot job, typically run daily from cron or a
// Kubernetes CronJob. It exports analysis snapshots older than the retention
// window to compressed JSONL files and deletes them from the database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bloomwatch/internal/archive"
	"bloomwatch/internal/config"
	"bloomwatch/internal/db"
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("bloomwatch archiver starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"dir", cfg.Archive.Dir,
		"retention_days", cfg.Archive.RetentionDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	archiver := archive.NewArchiver(
		db.NewSnapshotRepository(pool),
		cfg.Archive.Dir,
		cfg.Archive.RetentionDays,
		logger,
	)

	result, err := archiver.Run(ctx)
	if err != nil {
		return fmt.Errorf("archiving snapshots: %w", err)
	}

	logger.Info("archiver run complete",
		"archived", result.Archived,
		"deleted", result.Deleted,
		"file", result.File,
	)
	return nil
}
