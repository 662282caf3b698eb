package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/nouki"
	"github.com/ashita-ai/nouki/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present so NOUKI_LOG_LEVEL can come from it too.
	_ = godotenv.Load()

	// An invalid level falls back to info here; config validation rejects it
	// during startup.
	level := slog.LevelInfo
	if v := os.Getenv("NOUKI_LOG_LEVEL"); v != "" {
		level, _ = config.ParseLogLevel(v)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	app, err := nouki.New(
		nouki.WithLogger(logger),
		nouki.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run(ctx)
}
