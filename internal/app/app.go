// Package app provides application initialization and lifecycle management.
//
// App is the container that wires configuration, the database pool, Genkit,
// the tool registry, the agent loop, the title summarizer, and the HTTP
// server. Construction happens once in Setup; Run serves until the context
// is canceled, then drains background work and releases resources.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thetealover/aichat/internal/agent"
	"github.com/thetealover/aichat/internal/api"
	"github.com/thetealover/aichat/internal/config"
	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/session"
	"github.com/thetealover/aichat/internal/title"
	"github.com/thetealover/aichat/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// App is the application container.
type App struct {
	Config     *config.Config
	Logger     log.Logger
	Genkit     *genkit.Genkit
	DBPool     *pgxpool.Pool
	Store      *session.Store
	Registry   *tools.Registry
	Loop       *agent.Loop
	Summarizer *title.Summarizer
	Server     *api.Server

	mcpProvider *tools.MCPProvider

	// bgCancel stops background work (title generation) on shutdown.
	bgCancel     context.CancelFunc
	otelShutdown func(context.Context) error
	dbCleanup    func()
}

// Run serves the chat API until ctx is canceled, then shuts down
// gracefully: stop accepting requests, drain in-flight streams, wait
// for scheduled title generation, release resources.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.APIAddr,
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: SSE streams are bounded by MaxTurns, not wall time.
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("chat API listening", "addr", a.Config.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	a.Logger.Info("shutting down chat API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("shutting down http server", "error", err)
	}
	return <-errCh
}

// Close releases all resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.bgCancel != nil {
		a.bgCancel()
	}
	if a.Summarizer != nil {
		a.Summarizer.Wait()
	}
	if a.mcpProvider != nil {
		if err := a.mcpProvider.Close(); err != nil {
			a.Logger.Warn("closing mcp provider", "error", err)
		}
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(shutdownCtx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	return nil
}
