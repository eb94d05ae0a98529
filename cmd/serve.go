package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/thetealover/aichat/internal/app"
	"github.com/thetealover/aichat/internal/config"
)

// runServe initializes and starts the chat API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	a.Logger.Info("starting aichat", "version", Version, "config", cfg.String())

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}
