package api

import (
	"net/http"

	"github.com/thetealover/aichat/internal/log"
)

type healthResponse struct {
	Status string      `json:"status"`
	Model  string      `json:"model"`
	Tools  toolsStatus `json:"tools"`
}

type toolsStatus struct {
	MCP    bool `json:"mcp"`
	Search bool `json:"search"`
}

// healthHandler serves GET /health with the active model and feature flags.
type healthHandler struct {
	model         string
	mcpEnabled    bool
	searchEnabled bool
	logger        log.Logger
}

func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Model:  h.model,
		Tools: toolsStatus{
			MCP:    h.mcpEnabled,
			Search: h.searchEnabled,
		},
	}, h.logger)
}
