// Package tools provides tool discovery and registration for the agent loop.
//
// Tools come from providers: sources that can enumerate callable tools at
// startup (the MCP weather server, the web search client). The registry
// collects tools from all providers, registers their declarations with
// Genkit so the model sees them, and dispatches calls by name.
//
// A provider that fails at startup degrades the tool set instead of failing
// the process: its tools are simply absent for the run.
package tools

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrToolNotFound indicates a dispatch request for an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// Tool is one callable tool exposed to the model.
type Tool struct {
	// Name is the unique dispatch name (provider-prefixed for MCP tools).
	Name string
	// Description tells the model when to call this tool.
	Description string
	// InputSchema describes the tool arguments as JSON Schema.
	InputSchema *jsonschema.Schema
	// Execute runs the tool. The returned string becomes the tool result
	// content; an error is recoverable and is surfaced to the model as the
	// result content instead of failing the turn.
	Execute func(ctx context.Context, input map[string]any) (string, error)
}

// Provider supplies tools from one source.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// Tools enumerates the provider's tools. Called once at registry build.
	Tools(ctx context.Context) ([]Tool, error)
}
