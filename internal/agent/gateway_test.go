package agent

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/thetealover/aichat/internal/log"
)

func TestNewGenkitGatewayRateLimiter(t *testing.T) {
	g := genkit.Init(context.Background())

	gw, err := NewGenkitGateway(GatewayConfig{
		Genkit:            g,
		ModelName:         "googleai/gemini-2.5-flash",
		RequestsPerSecond: 2,
		Logger:            log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewGenkitGateway: %v", err)
	}
	if gw.limiter == nil {
		t.Error("limiter not set for positive requests per second")
	}
	if got := float64(gw.limiter.Limit()); got != 2 {
		t.Errorf("limiter rate = %v, want 2", got)
	}

	gw, err = NewGenkitGateway(GatewayConfig{
		Genkit:    g,
		ModelName: "googleai/gemini-2.5-flash",
		Logger:    log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewGenkitGateway: %v", err)
	}
	if gw.limiter != nil {
		t.Error("limiter set despite zero requests per second")
	}
}
