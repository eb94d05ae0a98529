package agent

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/tools"
)

// Reply is the model's move for one state machine step: either final text,
// or one or more tool requests to dispatch.
type Reply struct {
	// Text is the assistant's text, empty when the model requested tools.
	Text string
	// ToolRequests are the pending tool calls, in model order.
	ToolRequests []*ai.ToolRequest
	// Message is the full model message to append to the conversation.
	Message *ai.Message
}

// ModelGateway abstracts one model round-trip.
//
// Implementations stream text fragments through the stream callback as they
// arrive; a nil callback disables streaming. A gateway error is fatal to the
// turn: nothing is checkpointed and the loop stops.
type ModelGateway interface {
	Generate(ctx context.Context, messages []*ai.Message, stream func(text string)) (*Reply, error)
}

// GenkitGateway calls the configured model through Genkit.
//
// Tool requests are returned to the caller instead of being auto-dispatched,
// so the loop owns tool execution and checkpointing. Tool declarations still
// come from the registry, which registered them with Genkit at startup.
type GenkitGateway struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	registry    *tools.Registry
	limiter     *rate.Limiter
	logger      log.Logger
}

// GatewayConfig configures a GenkitGateway.
type GatewayConfig struct {
	Genkit      *genkit.Genkit
	ModelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Temperature float32
	Registry    *tools.Registry
	// RequestsPerSecond throttles model calls; 0 disables the limiter.
	RequestsPerSecond float64
	Logger            log.Logger
}

// NewGenkitGateway creates a gateway for the configured model.
func NewGenkitGateway(cfg GatewayConfig) (*GenkitGateway, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &GenkitGateway{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		registry:    cfg.Registry,
		limiter:     limiter,
		logger:      cfg.Logger,
	}, nil
}

// Generate performs one model round-trip over the given messages.
func (gw *GenkitGateway) Generate(ctx context.Context, messages []*ai.Message, stream func(text string)) (*Reply, error) {
	if gw.limiter != nil {
		if err := gw.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	// Genkit's renderMessages mutates message content in place, so shared
	// history must not be handed over directly.
	msgs := deepCopyMessages(messages)

	opts := []ai.GenerateOption{
		ai.WithModelName(gw.modelName),
		ai.WithMessages(msgs...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(map[string]any{"temperature": gw.temperature}),
	}
	if gw.registry != nil && gw.registry.Count() > 0 {
		opts = append(opts, ai.WithTools(gw.registry.Refs(gw.g)...))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				stream(text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, gw.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("model generation failed: %w", err)
	}

	return &Reply{
		Text:         resp.Text(),
		ToolRequests: resp.ToolRequests(),
		Message:      resp.Message,
	}, nil
}

// deepCopyMessages copies messages and their content slices.
func deepCopyMessages(messages []*ai.Message) []*ai.Message {
	copied := make([]*ai.Message, len(messages))
	for i, msg := range messages {
		m := *msg
		m.Content = make([]*ai.Part, len(msg.Content))
		copy(m.Content, msg.Content)
		copied[i] = &m
	}
	return copied
}
