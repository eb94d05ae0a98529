package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/thetealover/aichat/internal/agent"
	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/session"
)

// stubRunner replays a fixed event sequence and records the requests it saw.
type stubRunner struct {
	mu     sync.Mutex
	events []agent.Event
	seen   []agent.Request
}

func (s *stubRunner) Run(_ context.Context, req agent.Request) <-chan agent.Event {
	s.mu.Lock()
	s.seen = append(s.seen, req)
	s.mu.Unlock()

	ch := make(chan agent.Event, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch
}

// stubScheduler records scheduled session IDs.
type stubScheduler struct {
	mu       sync.Mutex
	sessions []string
}

func (s *stubScheduler) Schedule(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sessionID)
}

func (s *stubScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sessions...)
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Runner == nil {
		cfg.Runner = &stubRunner{}
	}
	if cfg.Store == nil {
		cfg.Store = session.NewMemory()
	}
	cfg.Logger = log.NewNop()

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() = %v", err)
	}
	return srv
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(ServerConfig{Store: session.NewMemory()}); err == nil {
		t.Error("expected error for missing runner")
	}
	if _, err := NewServer(ServerConfig{Runner: &stubRunner{}}); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, ServerConfig{
		ModelName:     "googleai/gemini-2.5-flash",
		MCPEnabled:    true,
		SearchEnabled: false,
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"status":"ok"`, `"model":"googleai/gemini-2.5-flash"`, `"mcp":true`, `"search":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestRequestIDGenerated(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	got := rec.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatal("X-Request-ID header not set")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("X-Request-ID = %q, not a valid UUID", got)
	}
}

func TestRequestIDReused(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	want := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", want)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != want {
		t.Errorf("X-Request-ID = %q, want %q", got, want)
	}
}

func TestRequestIDRejectsInvalid(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	if got == "not-a-uuid" {
		t.Error("invalid X-Request-ID should not be reused")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("X-Request-ID = %q, not a valid UUID", got)
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	srv := newTestServer(t, ServerConfig{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat/stream", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, ServerConfig{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

// panicRunner triggers the recovery middleware.
type panicRunner struct{}

func (panicRunner) Run(context.Context, agent.Request) <-chan agent.Event {
	panic("boom")
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Runner: panicRunner{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream",
		strings.NewReader(`{"message":"hi","session_id":"alice-1"}`))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal_error") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
