package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voicerag/internal/app"
	"voicerag/internal/config"
	"voicerag/internal/logger"
)

func main() {
	// Initialize structured logger
	slog.SetDefault(logger.New(os.Stdout, slog.LevelInfo))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Warn("failed to close dependencies", "error", err)
		}
	}()

	a, err := app.New(cfg, deps)
	if err != nil {
		return err
	}

	slog.Info("pipelines ready", "variants", cfg.EnabledVariants, "index_backend", cfg.IndexBackend)
	return a.Run(ctx)
}
