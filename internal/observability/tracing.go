// Package observability wires OpenTelemetry trace export into Genkit.
//
// Genkit records a span per model and tool invocation on its own
// TracerProvider. When tracing is enabled, this package attaches an
// OTLP/HTTP exporter to that provider so the spans reach a local
// collector (an OTel Collector or a vendor agent listening on 4318).
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/thetealover/aichat/internal/log"
)

// DefaultEndpoint is the conventional local OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector address (default: localhost:4318).
	Endpoint string
	// ServiceName appears on exported spans (default left to the SDK).
	ServiceName string
	// Environment is attached as deployment.environment.
	Environment string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider.
// Returns a shutdown function that flushes pending spans. Exporter
// creation failures disable tracing rather than failing startup.
//
// Must run before genkit.Init so the provider is ready when Genkit
// starts recording.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads service identity from the OTEL env
	// vars. Set here, exactly once, before any goroutines spawn.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
