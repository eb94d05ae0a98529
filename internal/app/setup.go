package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thetealover/aichat/db"
	"github.com/thetealover/aichat/internal/agent"
	"github.com/thetealover/aichat/internal/api"
	"github.com/thetealover/aichat/internal/config"
	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/observability"
	"github.com/thetealover/aichat/internal/session"
	"github.com/thetealover/aichat/internal/title"
	"github.com/thetealover/aichat/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.Trace.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Trace.Endpoint,
			ServiceName: cfg.Trace.ServiceName,
			Environment: cfg.Trace.Environment,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	store, err := session.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Store = store

	registry, err := provideRegistry(ctx, a, g, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	gateway, err := agent.NewGenkitGateway(agent.GatewayConfig{
		Genkit:            g,
		ModelName:         cfg.FullModelName(),
		Temperature:       cfg.Temperature,
		RequestsPerSecond: cfg.ModelRequestsPerSecond,
		Registry:          registry,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model gateway: %w", err)
	}

	loop, err := agent.NewLoop(agent.LoopConfig{
		Gateway:      gateway,
		Store:        store,
		Registry:     registry,
		Logger:       logger,
		SystemPrompt: agent.SystemPrompt,
		MaxTurns:     cfg.MaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent loop: %w", err)
	}
	a.Loop = loop

	bgCtx, bgCancel := context.WithCancel(context.WithoutCancel(ctx))
	a.bgCancel = bgCancel

	titleModel, err := title.NewGenkitModel(g, cfg.FullTitleModelName())
	if err != nil {
		return nil, fmt.Errorf("creating title model: %w", err)
	}
	summarizer, err := title.NewSummarizer(bgCtx, titleModel, store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating title summarizer: %w", err)
	}
	a.Summarizer = summarizer

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Runner:        loop,
		Store:         store,
		Registry:      registry,
		Titles:        summarizer,
		CORSOrigins:   cfg.CORSOrigins,
		ModelName:     cfg.FullModelName(),
		MCPEnabled:    cfg.Tools.MCPEnabled,
		SearchEnabled: cfg.Tools.SearchEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideDBPool runs migrations, then creates and pings the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGenkit initializes Genkit with the Gemini plugin.
// Tracing setup must happen first so the TracerProvider is ready.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Info("initialized Genkit", "model", cfg.FullModelName())
	return g, nil
}

// provideRegistry assembles the enabled tool providers and builds the
// registry. A provider that fails to enumerate its tools is skipped
// inside BuildRegistry, so a down MCP server degrades rather than
// blocking startup.
func provideRegistry(ctx context.Context, a *App, g *genkit.Genkit, cfg *config.Config, logger log.Logger) (*tools.Registry, error) {
	var providers []tools.Provider

	if cfg.Tools.MCPEnabled {
		mcpProvider := tools.NewMCPProvider(
			cfg.Tools.MCPServerName,
			cfg.Tools.MCPURL,
			time.Duration(cfg.Tools.MCPTimeout)*time.Second,
			logger,
		)
		a.mcpProvider = mcpProvider
		providers = append(providers, mcpProvider)
	}

	if cfg.Tools.SearchEnabled {
		providers = append(providers,
			tools.NewSearchProvider(cfg.Tools.SearXNGBaseURL, cfg.Tools.SearchMaxResults, logger))
	}

	registry, err := tools.BuildRegistry(ctx, g, logger, providers...)
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}
	logger.Info("tools registered", "count", registry.Count(), "names", registry.Names())
	return registry, nil
}
