// Package api provides the JSON HTTP server for the chat backend.
//
// Routes:
//   - POST /chat/stream              — run one agent turn, stream SSE records
//   - GET  /history/{session_id}    — ordered message history
//   - GET  /conversations/{username} — the user's sessions with titles
//   - GET  /mcp?city=X              — invoke the weather tool directly
//   - GET  /health                  — status, model, and feature flags
//
// Middleware stack (outermost first):
//
//	Recovery → RequestID → Logging → CORS → Routes
//
// RequestID runs before Logging so request_id is available in log
// attributes. CORS runs last so preflight OPTIONS short-circuits with
// the proper headers.
package api

import (
	"errors"
	"net/http"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/tools"
)

// ServerConfig contains dependencies for the API server.
type ServerConfig struct {
	Logger      log.Logger
	Runner      ChatRunner      // Required
	Store       HistoryStore    // Required
	Registry    *tools.Registry // Optional: nil disables /mcp tool lookups
	Titles      TitleScheduler  // Optional: nil disables title generation
	CORSOrigins []string

	// Health report fields
	ModelName     string
	MCPEnabled    bool
	SearchEnabled bool
}

// Server is the chat API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("chat runner is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("history store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{runner: cfg.Runner, titles: cfg.Titles, logger: logger}
	hh := &historyHandler{store: cfg.Store, logger: logger}
	wh := &weatherHandler{registry: cfg.Registry, logger: logger}
	health := &healthHandler{
		model:         cfg.ModelName,
		mcpEnabled:    cfg.MCPEnabled,
		searchEnabled: cfg.SearchEnabled,
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/stream", ch.stream)
	mux.HandleFunc("GET /history/{session_id}", hh.messages)
	mux.HandleFunc("GET /conversations/{username}", hh.conversations)
	mux.HandleFunc("GET /mcp", wh.current)
	mux.HandleFunc("GET /health", health.health)

	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
