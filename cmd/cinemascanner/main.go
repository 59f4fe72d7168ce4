package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"CinemaScanner/internal/app"
	"CinemaScanner/internal/config"
	"CinemaScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		logger.Warn("release resources", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
