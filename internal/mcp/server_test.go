package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/weather"
)

// stubWeather returns canned conditions or an error.
type stubWeather struct {
	current *weather.Current
	err     error
}

func (s *stubWeather) Current(_ context.Context, _ string) (*weather.Current, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.current, nil
}

func taipeiConditions() *weather.Current {
	return &weather.Current{
		Location: weather.Location{Name: "Taipei", Country: "Taiwan"},
		Condition: weather.Conditions{
			TempC:      28.3,
			FeelslikeC: 31.1,
			WindKph:    13,
			WindDir:    "NE",
			Humidity:   70,
			Condition:  weather.Summary{Text: "Partly cloudy"},
		},
	}
}

// connectServer builds a weather MCP server backed by the stub client and an
// SDK client connected via in-memory transports.
func connectServer(t *testing.T, client WeatherClient) *mcp.ClientSession {
	t.Helper()

	server, err := NewServer(Config{
		Name:    "weather",
		Version: "1.0.0",
		Client:  client,
		Logger:  log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer() = %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() = %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	sdkClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := sdkClient.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() = %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestListTools(t *testing.T) {
	session := connectServer(t, &stubWeather{current: taipeiConditions()})

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() = %v", err)
	}
	if len(result.Tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(result.Tools))
	}
	tool := result.Tools[0]
	if tool.Name != "get_current_weather" {
		t.Errorf("tool name = %q", tool.Name)
	}
	if tool.InputSchema == nil {
		t.Error("tool schema missing")
	}
}

func TestCallGetCurrentWeather(t *testing.T) {
	session := connectServer(t, &stubWeather{current: taipeiConditions()})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_current_weather",
		Arguments: map[string]any{"city": "Taipei"},
	})
	if err != nil {
		t.Fatalf("CallTool() = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result.Content)
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "Taipei") || !strings.Contains(text, "Partly cloudy") {
		t.Errorf("summary = %q", text)
	}

	// Second block carries the structured payload
	payload := result.Content[1].(*mcp.TextContent).Text
	if !strings.Contains(payload, `"temp_c":28.3`) {
		t.Errorf("payload = %q", payload)
	}
}

func TestCallGetCurrentWeatherNotFound(t *testing.T) {
	session := connectServer(t, &stubWeather{err: weather.ErrCityNotFound})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_current_weather",
		Arguments: map[string]any{"city": "Nowhereville"},
	})
	if err != nil {
		t.Fatalf("CallTool() = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unknown city")
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "Nowhereville") {
		t.Errorf("error text = %q", text)
	}
}

func TestCallGetCurrentWeatherUpstreamDown(t *testing.T) {
	session := connectServer(t, &stubWeather{err: weather.ErrUpstream})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_current_weather",
		Arguments: map[string]any{"city": "Taipei"},
	})
	if err != nil {
		t.Fatalf("CallTool() = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for upstream failure")
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(Config{Version: "1", Client: &stubWeather{}}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewServer(Config{Name: "weather", Client: &stubWeather{}}); err == nil {
		t.Error("expected error for missing version")
	}
	if _, err := NewServer(Config{Name: "weather", Version: "1"}); err == nil {
		t.Error("expected error for missing client")
	}
}
