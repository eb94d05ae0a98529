package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thetealover/aichat/internal/log"
)

// MCPProvider discovers tools from one MCP server over streamable HTTP.
//
// Discovered tool names are prefixed with the server name
// ("weather_get_current_weather") so tools from different servers cannot
// collide in the registry.
type MCPProvider struct {
	serverName string
	endpoint   string
	timeout    time.Duration
	transport  mcp.Transport
	logger     log.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
}

// MCPOption configures an MCPProvider.
type MCPOption func(*MCPProvider)

// WithTransport overrides the streamable HTTP transport. Used by tests to
// connect over an in-memory transport.
func WithTransport(t mcp.Transport) MCPOption {
	return func(p *MCPProvider) { p.transport = t }
}

// NewMCPProvider creates a provider for the MCP server at endpoint.
func NewMCPProvider(serverName, endpoint string, timeout time.Duration, logger log.Logger, opts ...MCPOption) *MCPProvider {
	if logger == nil {
		logger = log.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	p := &MCPProvider{
		serverName: serverName,
		endpoint:   endpoint,
		timeout:    timeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the provider in logs.
func (p *MCPProvider) Name() string {
	return "mcp:" + p.serverName
}

// Tools connects to the MCP server and enumerates its tools.
func (p *MCPProvider) Tools(ctx context.Context) ([]Tool, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %q: %w", p.serverName, err)
	}

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing tools from MCP server %q: %w", p.serverName, err)
	}

	tools := make([]Tool, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		remoteName := t.Name
		schema, err := asSchema(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("decoding schema for MCP tool %q: %w", remoteName, err)
		}
		tools = append(tools, Tool{
			Name:        p.serverName + "_" + remoteName,
			Description: t.Description,
			InputSchema: schema,
			Execute: func(ctx context.Context, input map[string]any) (string, error) {
				return p.call(ctx, remoteName, input)
			},
		})
	}
	return tools, nil
}

// asSchema coerces the SDK's untyped schema field to the typed form.
// Servers built on this SDK send *jsonschema.Schema directly; anything
// else that marshals to JSON Schema is decoded through a round-trip.
func asSchema(raw any) (*jsonschema.Schema, error) {
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case *jsonschema.Schema:
		return s, nil
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var out jsonschema.Schema
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}

// Close shuts down the client session, if connected.
func (p *MCPProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

func (p *MCPProvider) connect(ctx context.Context) (*mcp.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return p.session, nil
	}

	transport := p.transport
	if transport == nil {
		transport = &mcp.StreamableClientTransport{Endpoint: p.endpoint}
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "aichat", Version: "1.0.0"}, nil)
	session, err := client.Connect(connectCtx, transport, nil)
	if err != nil {
		return nil, err
	}
	p.session = session
	return session, nil
}

func (p *MCPProvider) call(ctx context.Context, remoteName string, input map[string]any) (string, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("connecting to MCP server %q: %w", p.serverName, err)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      remoteName,
		Arguments: input,
	})
	if err != nil {
		return "", fmt.Errorf("calling MCP tool %q: %w", remoteName, err)
	}

	text := contentText(result.Content)
	if result.IsError {
		return "", fmt.Errorf("MCP tool %q failed: %s", remoteName, text)
	}
	return text, nil
}

// contentText flattens text content blocks into one string.
// Non-text blocks are skipped; the chat protocol only carries text results.
func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
