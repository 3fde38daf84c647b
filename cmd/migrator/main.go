package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dreamplay/rewards/migrator"
	"github.com/dreamplay/rewards/migrator/config"
	"github.com/dreamplay/rewards/pkg/logger"
	"github.com/dreamplay/rewards/pkg/pgxdb"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	// Load configuration from environment
	cfg := config.New()

	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	log.Info("Starting database migrator",
		slog.String("migrationsDir", cfg.MigrationsDir),
		slog.Bool("dryRun", cfg.DryRun),
		slog.String("version", version),
		slog.String("date", date),
	)

	// Cancel on SIGINT/SIGTERM or when the timeout elapses
	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(baseCtx, cfg.OperationTimeout)
	defer cancel()

	db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	pending, err := migrator.PendingMigrations(db, cfg.MigrationsDir)
	if err != nil {
		log.Error("Failed to plan migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Planned migrations", slog.Int("pending", pending))

	if cfg.DryRun {
		log.Info("Dry run, nothing applied")
		return
	}

	applied, err := migrator.ApplyMigrations(db, cfg.MigrationsDir)
	if err != nil {
		log.Error("Failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("Database migrations applied successfully", slog.Int("applied", applied))
}
