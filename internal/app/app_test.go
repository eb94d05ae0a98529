package app

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/thetealover/aichat/internal/config"
	"github.com/thetealover/aichat/internal/log"
)

func TestProvideRegistrySearchOnly(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)
	cfg := &config.Config{}
	cfg.Tools.SearchEnabled = true
	cfg.Tools.SearXNGBaseURL = "http://localhost:8888"
	cfg.Tools.SearchMaxResults = 3

	a := &App{Config: cfg, Logger: log.NewNop()}
	registry, err := provideRegistry(ctx, a, g, cfg, log.NewNop())
	if err != nil {
		t.Fatalf("provideRegistry() = %v", err)
	}

	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
	if _, ok := registry.Get("web_search"); !ok {
		t.Error("web_search not registered")
	}
	if a.mcpProvider != nil {
		t.Error("mcp provider should not be created when disabled")
	}
}

func TestProvideRegistryMCPUnreachableDegrades(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)
	cfg := &config.Config{}
	cfg.Tools.MCPEnabled = true
	cfg.Tools.MCPServerName = "weather"
	cfg.Tools.MCPURL = "http://127.0.0.1:1/mcp"
	cfg.Tools.MCPTimeout = 1

	a := &App{Config: cfg, Logger: log.NewNop()}
	registry, err := provideRegistry(ctx, a, g, cfg, log.NewNop())
	if err != nil {
		t.Fatalf("provideRegistry() = %v, want degraded registry", err)
	}

	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
	t.Cleanup(func() { _ = a.Close() })
}

func TestCloseOnEmptyApp(t *testing.T) {
	a := &App{Logger: log.NewNop()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestProvideRegistryNoProviders(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)
	cfg := &config.Config{}

	a := &App{Config: cfg, Logger: log.NewNop()}
	registry, err := provideRegistry(ctx, a, g, cfg, log.NewNop())
	if err != nil {
		t.Fatalf("provideRegistry() = %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
}
