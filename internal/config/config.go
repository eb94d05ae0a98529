// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ~/.aichat/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: Model selection, temperature, max turns, title model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Tools: MCP weather server and SearXNG web search (see tools.go)
//   - Observability: OTLP trace export (see observability.go)
//
// Security: Sensitive data (passwords, API keys) are never logged.
// Validation: Range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTurns indicates the max turns value is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidModelRate indicates the model request rate is out of range.
	ErrInvalidModelRate = errors.New("invalid model request rate")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerAddr indicates a listen address is malformed.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidToolsConfig indicates the tools configuration is inconsistent.
	ErrInvalidToolsConfig = errors.New("invalid tools configuration")
)

// DefaultModelName is the model used for conversation turns.
const DefaultModelName = "gemini-2.5-flash"

// DefaultTitleModelName is the cheaper model used for title generation.
const DefaultTitleModelName = "gemini-2.5-flash-lite"

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName      string  `mapstructure:"model_name" json:"model_name"`             // Conversation model (e.g., "gemini-2.5-flash")
	TitleModelName string  `mapstructure:"title_model_name" json:"title_model_name"` // Title generation model
	Temperature    float32 `mapstructure:"temperature" json:"temperature"`
	MaxTurns       int     `mapstructure:"max_turns" json:"max_turns"` // Model round-trips per request before the loop gives up
	// ModelRequestsPerSecond rate-limits outbound model calls. Zero disables
	// the limiter.
	ModelRequestsPerSecond float64 `mapstructure:"model_requests_per_second" json:"model_requests_per_second"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	APIAddr     string   `mapstructure:"api_addr" json:"api_addr"` // chat API listen address
	MCPAddr     string   `mapstructure:"mcp_addr" json:"mcp_addr"` // weather MCP server listen address
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Tool configuration (see tools.go for type definitions)
	Tools   ToolsConfig   `mapstructure:"tools" json:"tools"`
	Weather WeatherConfig `mapstructure:"weather" json:"weather"`

	// Observability configuration (see observability.go for type definition)
	Trace TraceConfig `mapstructure:"trace" json:"trace"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads and fully validates configuration for the chat API server.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

// LoadMCPServe loads configuration for the standalone weather MCP server,
// which needs neither a model API key nor a database.
func LoadMCPServe() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateMCPServe(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".aichat"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	// Read configuration file (if exists)
	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(os.Getenv("DATABASE_URL")); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("title_model_name", DefaultTitleModelName)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_turns", 8)
	v.SetDefault("model_requests_per_second", 2.0)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "aichat")
	v.SetDefault("postgres_password", "aichat_dev_password")
	v.SetDefault("postgres_db_name", "aichat")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("api_addr", "127.0.0.1:8000")
	v.SetDefault("mcp_addr", "127.0.0.1:8001")
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})

	// Tool defaults
	v.SetDefault("tools.mcp_enabled", true)
	v.SetDefault("tools.mcp_url", "http://127.0.0.1:8001/mcp")
	v.SetDefault("tools.mcp_server_name", "weather")
	v.SetDefault("tools.mcp_timeout", 5)
	v.SetDefault("tools.search_enabled", true)
	v.SetDefault("tools.searxng_base_url", "http://localhost:8888")
	v.SetDefault("tools.search_max_results", 5)

	// Weather provider defaults
	v.SetDefault("weather.base_url", "https://api.weatherapi.com/v1")

	// Trace defaults
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.endpoint", "localhost:4318")
	v.SetDefault("trace.service_name", "aichat")
	v.SetDefault("trace.environment", "dev")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
//
// Secrets stay out of config files:
//  1. GEMINI_API_KEY - Read directly by Genkit (not via Viper), presence checked in Validate()
//  2. WEATHER_API_KEY - weatherapi.com key for the MCP weather server
//  3. DATABASE_URL - Parsed separately in Load(), overrides postgres_* keys
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("weather.api_key", "WEATHER_API_KEY")

	mustBind("model_name", "AICHAT_MODEL_NAME")
	mustBind("title_model_name", "AICHAT_TITLE_MODEL_NAME")
	mustBind("api_addr", "AICHAT_API_ADDR")
	mustBind("mcp_addr", "AICHAT_MCP_ADDR")
	mustBind("cors_origins", "AICHAT_CORS_ORIGINS")
	mustBind("log_level", "AICHAT_LOG_LEVEL")

	mustBind("tools.mcp_enabled", "AICHAT_MCP_ENABLED")
	mustBind("tools.mcp_url", "AICHAT_MCP_URL")
	mustBind("tools.search_enabled", "AICHAT_SEARCH_ENABLED")
	mustBind("tools.searxng_base_url", "AICHAT_SEARXNG_BASE_URL")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Validation checks its presence in cfg.Validate().
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked to prevent substring
// matching; longer ones keep the first and last 2 characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Weather.APIKey (via WeatherConfig.MarshalJSON)
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash". Already-qualified names pass through.
func (c *Config) FullModelName() string {
	return qualifyModel(c.ModelName)
}

// FullTitleModelName returns the provider-qualified title model name.
func (c *Config) FullTitleModelName() string {
	return qualifyModel(c.TitleModelName)
}

func qualifyModel(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "googleai/" + name
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
