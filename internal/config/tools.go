package config

import (
	"encoding/json"
	"fmt"
)

// ToolsConfig controls which agent tools are registered at startup.
//
// Disabled tools are simply absent from the registry; the model never sees
// their declarations and there is no runtime gating beyond registration.
type ToolsConfig struct {
	// MCPEnabled registers tools discovered from the MCP weather server.
	MCPEnabled bool `mapstructure:"mcp_enabled" json:"mcp_enabled"`
	// MCPURL is the streamable HTTP endpoint of the MCP server.
	MCPURL string `mapstructure:"mcp_url" json:"mcp_url"`
	// MCPServerName prefixes discovered tool names (e.g., "weather_get_current_weather").
	MCPServerName string `mapstructure:"mcp_server_name" json:"mcp_server_name"`
	// MCPTimeout is the connection timeout in seconds (default: 5).
	MCPTimeout int `mapstructure:"mcp_timeout" json:"mcp_timeout"`

	// SearchEnabled registers the web search tool.
	SearchEnabled bool `mapstructure:"search_enabled" json:"search_enabled"`
	// SearXNGBaseURL is the SearXNG instance URL (e.g., http://searxng:8080).
	SearXNGBaseURL string `mapstructure:"searxng_base_url" json:"searxng_base_url"`
	// SearchMaxResults caps results returned to the model per query.
	SearchMaxResults int `mapstructure:"search_max_results" json:"search_max_results"`
}

// WeatherConfig holds weatherapi.com access for the MCP weather server.
type WeatherConfig struct {
	// APIKey is the weatherapi.com API key (from WEATHER_API_KEY).
	APIKey string `mapstructure:"api_key" json:"api_key" sensitive:"true"`
	// BaseURL is the weatherapi.com API root (default: https://api.weatherapi.com/v1).
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (w WeatherConfig) MarshalJSON() ([]byte, error) {
	type alias WeatherConfig
	a := alias(w)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal weather config: %w", err)
	}
	return data, nil
}
