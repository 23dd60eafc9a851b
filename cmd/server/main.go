// Package main implements the entry point for the sticker service, which
// ingests vocabulary cards from the capture pipeline and generates kawaii
// background stickers for them.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/languagesgo/stickerforge/internal/config"
	"github.com/languagesgo/stickerforge/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start sticker service: %v", err)
	}
}

// run loads configuration, wires the application together and serves HTTP
// until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_batch_size", cfg.Queue.BatchSize,
		"redis_enabled", cfg.Redis.URL != "")

	ctx := context.Background()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database connection", "error", err)
		}
	}()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
