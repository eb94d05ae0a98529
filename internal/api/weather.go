package api

import (
	"net/http"
	"strings"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/tools"
)

const weatherToolName = "get_current_weather"

// weatherHandler serves GET /mcp?city=X, a diagnostics endpoint that
// invokes the weather tool directly, bypassing the agent loop.
type weatherHandler struct {
	registry *tools.Registry
	logger   log.Logger
}

type weatherResponse struct {
	Result string `json:"result"`
}

func (h *weatherHandler) current(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, "missing_city", "city query parameter is required", h.logger)
		return
	}

	if h.registry == nil || h.registry.Count() == 0 {
		writeError(w, http.StatusServiceUnavailable, "no_tools", "no tools registered", h.logger)
		return
	}

	tool, ok := h.lookupWeatherTool()
	if !ok {
		writeError(w, http.StatusNotFound, "tool_not_found", "weather tool is not registered", h.logger)
		return
	}

	out, err := tool.Execute(r.Context(), map[string]any{"city": city})
	if err != nil {
		h.logger.Warn("weather tool invocation failed", "city", city, "error", err)
		writeError(w, http.StatusBadGateway, "tool_failed", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, weatherResponse{Result: out}, h.logger)
}

// lookupWeatherTool finds the weather tool by exact name or, since MCP
// tools are registered under a "<server>_" prefix, by suffix match.
func (h *weatherHandler) lookupWeatherTool() (tools.Tool, bool) {
	if t, ok := h.registry.Get(weatherToolName); ok {
		return t, true
	}
	for _, name := range h.registry.Names() {
		if strings.HasSuffix(name, "_"+weatherToolName) {
			return h.registry.Get(name)
		}
	}
	return tools.Tool{}, false
}
