// Package mcp implements the weather MCP server.
//
// The server exposes current-weather lookups as MCP tools over streamable
// HTTP (or any SDK transport). The chat API discovers these tools at startup
// through the MCP client provider, so the agent gains weather capability
// without linking the weather client directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/weather"
)

// WeatherClient is the weather lookup surface the server needs.
type WeatherClient interface {
	Current(ctx context.Context, city string) (*weather.Current, error)
}

// Server wraps the MCP SDK server and the weather client.
type Server struct {
	mcpServer *mcp.Server
	client    WeatherClient
	logger    log.Logger
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Client  WeatherClient
	Logger  log.Logger
}

// NewServer creates the weather MCP server with its tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("weather client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		client:  cfg.Client,
		logger:  cfg.Logger,
		name:    cfg.Name,
		version: cfg.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Run starts the MCP server on the given transport.
// This is a blocking call that handles all MCP protocol communication.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// Handler returns the streamable HTTP handler for mounting under /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// GetCurrentWeatherInput defines the input schema for get_current_weather.
type GetCurrentWeatherInput struct {
	City string `json:"city" jsonschema:"City name, postcode, or lat,lon pair to look up"`
}

func (s *Server) registerTools() error {
	inputSchema, err := jsonschema.For[GetCurrentWeatherInput](nil)
	if err != nil {
		return fmt.Errorf("failed to create input schema: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_current_weather",
		Description: "Get current weather conditions for a city: temperature, wind, humidity, and a text summary.",
		InputSchema: inputSchema,
	}, s.getCurrentWeather)

	return nil
}

// getCurrentWeather handles the tool call inline, like net/http.Handler.
// Provider failures become error results so the calling model can react;
// only programming errors propagate as protocol errors.
func (s *Server) getCurrentWeather(ctx context.Context, _ *mcp.CallToolRequest, in GetCurrentWeatherInput) (*mcp.CallToolResult, any, error) {
	current, err := s.client.Current(ctx, in.City)
	if err != nil {
		s.logger.Warn("weather lookup failed", "city", in.City, "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: lookupErrorText(err, in.City)}},
		}, nil, nil
	}

	payload, err := json.Marshal(current)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding weather result: %w", err)
	}

	summary := fmt.Sprintf("%s, %s: %s, %.1f°C (feels like %.1f°C), wind %.0f kph %s, humidity %d%%",
		current.Location.Name,
		current.Location.Country,
		current.Condition.Condition.Text,
		current.Condition.TempC,
		current.Condition.FeelslikeC,
		current.Condition.WindKph,
		current.Condition.WindDir,
		current.Condition.Humidity,
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil, nil
}

func lookupErrorText(err error, city string) string {
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		return fmt.Sprintf("No location found matching %q", city)
	case errors.Is(err, weather.ErrUnauthorized):
		return "Weather provider rejected the API key"
	default:
		return "Weather provider is currently unavailable"
	}
}
