package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/tools"
)

// registryProvider serves a fixed tool set for registry construction.
type registryProvider struct {
	tools []tools.Tool
}

func (registryProvider) Name() string { return "test" }

func (p registryProvider) Tools(context.Context) ([]tools.Tool, error) {
	return p.tools, nil
}

func buildRegistry(t *testing.T, toolSet ...tools.Tool) *tools.Registry {
	t.Helper()
	ctx := context.Background()
	r, err := tools.BuildRegistry(ctx, genkit.Init(ctx), log.NewNop(), registryProvider{tools: toolSet})
	if err != nil {
		t.Fatalf("BuildRegistry() = %v", err)
	}
	return r
}

func weatherTool(name, result string, execErr error) tools.Tool {
	return tools.Tool{
		Name:        name,
		Description: "returns current conditions",
		Execute: func(_ context.Context, input map[string]any) (string, error) {
			if execErr != nil {
				return "", execErr
			}
			return result + " in " + input["city"].(string), nil
		},
	}
}

func getWeather(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestWeatherEndpoint(t *testing.T) {
	registry := buildRegistry(t, weatherTool("get_current_weather", "sunny", nil))
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp?city=Taipei")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "sunny in Taipei") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWeatherEndpointPrefixedTool(t *testing.T) {
	// MCP providers register tools under a "<server>_" prefix.
	registry := buildRegistry(t, weatherTool("weather_get_current_weather", "cloudy", nil))
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp?city=Osaka")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cloudy in Osaka") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWeatherEndpointMissingCity(t *testing.T) {
	registry := buildRegistry(t, weatherTool("get_current_weather", "sunny", nil))
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWeatherEndpointEmptyRegistry(t *testing.T) {
	registry := buildRegistry(t)
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp?city=Taipei")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestWeatherEndpointNilRegistry(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := getWeather(t, srv, "/mcp?city=Taipei")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestWeatherEndpointToolAbsent(t *testing.T) {
	registry := buildRegistry(t, weatherTool("web_search", "irrelevant", nil))
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp?city=Taipei")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWeatherEndpointToolFailure(t *testing.T) {
	registry := buildRegistry(t, weatherTool("get_current_weather", "", errors.New("provider unavailable")))
	srv := newTestServer(t, ServerConfig{Registry: registry})

	rec := getWeather(t, srv, "/mcp?city=Taipei")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "provider unavailable") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
