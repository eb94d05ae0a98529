package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/thetealover/aichat/internal/log"
)

// Registry holds the tools collected from all providers.
//
// Thread Safety: the registry is built once at startup and read-only
// afterwards, so lookups need no locking.
type Registry struct {
	byName map[string]Tool
	order  []string
	logger log.Logger
}

// BuildRegistry collects tools from the given providers and registers their
// declarations with Genkit.
//
// A provider error is logged and skipped: the agent runs with a reduced tool
// set rather than refusing to start. Duplicate tool names across providers
// are rejected, since dispatch is by name.
func BuildRegistry(ctx context.Context, g *genkit.Genkit, logger log.Logger, providers ...Provider) (*Registry, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	r := &Registry{
		byName: make(map[string]Tool),
		logger: logger,
	}

	for _, p := range providers {
		tools, err := p.Tools(ctx)
		if err != nil {
			logger.Warn("tool provider unavailable, continuing without its tools",
				"provider", p.Name(),
				"error", err)
			continue
		}

		for _, tool := range tools {
			if _, exists := r.byName[tool.Name]; exists {
				return nil, fmt.Errorf("duplicate tool name %q from provider %q", tool.Name, p.Name())
			}
			if err := defineGenkitTool(g, tool); err != nil {
				return nil, fmt.Errorf("registering tool %q: %w", tool.Name, err)
			}
			r.byName[tool.Name] = tool
			r.order = append(r.order, tool.Name)
		}

		logger.Info("tool provider registered",
			"provider", p.Name(),
			"tools", len(tools))
	}

	return r, nil
}

// Get returns the tool with the given dispatch name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.byName[name]
	return tool, ok
}

// Refs returns tool references for generation requests, in registration order.
func (r *Registry) Refs(g *genkit.Genkit) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(r.order))
	for _, name := range r.order {
		if tool := genkit.LookupTool(g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.order)
}

// defineGenkitTool registers the tool declaration with Genkit so the model
// sees it. The handler delegates to Execute; with tool requests returned to
// the loop for dispatch it normally does not run, but keeping it live means
// the declaration and the implementation cannot drift.
func defineGenkitTool(g *genkit.Genkit, tool Tool) error {
	schema, err := schemaMap(tool.InputSchema)
	if err != nil {
		return fmt.Errorf("converting input schema: %w", err)
	}

	execute := tool.Execute
	genkit.DefineToolWithInputSchema(g, tool.Name, tool.Description, schema,
		func(ctx *ai.ToolContext, input any) (string, error) {
			args, ok := input.(map[string]any)
			if !ok && input != nil {
				return "", fmt.Errorf("unexpected input type %T for tool %s", input, tool.Name)
			}
			return execute(ctx.Context, args)
		})
	return nil
}

// schemaMap bridges a typed JSON Schema to the plain map Genkit consumes.
// Both marshal to standard JSON Schema, so a JSON round-trip is lossless
// for the subset tools use.
func schemaMap(schema *jsonschema.Schema) (map[string]any, error) {
	if schema == nil {
		// Tools without arguments declare an empty object
		return map[string]any{"type": "object"}, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return out, nil
}
