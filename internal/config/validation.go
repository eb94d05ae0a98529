package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key (required for all model operations)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.TitleModelName == "" {
		return fmt.Errorf("%w: title_model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	// Reference: Gemini API documentation
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTurns bounds the model round-trips per request
	if c.MaxTurns < 1 || c.MaxTurns > 64 {
		return fmt.Errorf("%w: must be between 1 and 64, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}

	// Zero disables the model rate limiter; negative makes no sense
	if c.ModelRequestsPerSecond < 0 {
		return fmt.Errorf("%w: model_requests_per_second cannot be negative, got %.2f",
			ErrInvalidModelRate, c.ModelRequestsPerSecond)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "aichat_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// Listen addresses
	for _, addr := range []string{c.APIAddr, c.MCPAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidServerAddr, addr, err)
		}
	}

	// Tools: an enabled tool source needs an endpoint to reach
	if c.Tools.MCPEnabled && c.Tools.MCPURL == "" {
		return fmt.Errorf("%w: tools.mcp_enabled is set but tools.mcp_url is empty", ErrInvalidToolsConfig)
	}
	if c.Tools.SearchEnabled && c.Tools.SearXNGBaseURL == "" {
		return fmt.Errorf("%w: tools.search_enabled is set but tools.searxng_base_url is empty", ErrInvalidToolsConfig)
	}

	return nil
}

// ValidateMCPServe validates the configuration needed to run the weather MCP
// server. Called by the mcp subcommand instead of Validate; it does not
// require a Gemini key or PostgreSQL access.
func (c *Config) ValidateMCPServe() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Weather.APIKey == "" {
		return fmt.Errorf("%w: WEATHER_API_KEY environment variable is required\n"+
			"Get your API key at: https://www.weatherapi.com/",
			ErrMissingAPIKey)
	}
	if _, _, err := net.SplitHostPort(c.MCPAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidServerAddr, c.MCPAddr, err)
	}
	return nil
}
