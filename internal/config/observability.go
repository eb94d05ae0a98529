package config

// TraceConfig holds OTLP trace export configuration.
//
// When enabled, spans recorded by Genkit are exported over OTLP/HTTP to the
// configured collector endpoint. See internal/observability for setup.
type TraceConfig struct {
	// Enabled turns trace export on (default: false).
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName is the service name attached to exported spans (default: aichat).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
}
