package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/thetealover/aichat/internal/config"
	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/mcp"
	"github.com/thetealover/aichat/internal/weather"
)

// runMCP starts the standalone weather MCP server over streamable HTTP.
// It needs only the weather API key and a listen address, not the full
// chat stack.
func runMCP() error {
	cfg, err := config.LoadMCPServe()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, logger)
	if err != nil {
		return fmt.Errorf("creating weather client: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.Tools.MCPServerName,
		Version: Version,
		Client:  client,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.Handler())

	httpServer := &http.Server{
		Addr:              cfg.MCPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("weather MCP server listening", "addr", cfg.MCPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down MCP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutting down http server", "error", err)
	}
	return <-errCh
}
