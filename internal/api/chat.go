package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/thetealover/aichat/internal/agent"
	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/sse"
)

const maxChatBodyBytes = 1 << 20

// ChatRunner runs one agent turn and streams its lifecycle events.
// *agent.Loop satisfies it.
type ChatRunner interface {
	Run(ctx context.Context, req agent.Request) <-chan agent.Event
}

// TitleScheduler queues background title generation for a session.
// *title.Summarizer satisfies it.
type TitleScheduler interface {
	Schedule(sessionID string)
}

// chatHandler serves POST /chat/stream.
type chatHandler struct {
	runner ChatRunner
	titles TitleScheduler // optional: nil disables title generation
	logger log.Logger
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// stream runs one turn and forwards its events as SSE records.
//
// An error before the first record becomes a plain 500 JSON response.
// Once streaming has started the headers are committed, so a later
// error terminates the stream without an end record and the client
// treats the missing end as failure.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required", h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}

	ctx := r.Context()
	events := h.runner.Run(ctx, agent.Request{
		SessionID: req.SessionID,
		UserID:    userFromSession(req.SessionID),
		Input:     req.Message,
	})

	// Hold off on SSE headers until the first event arrives so a turn
	// that fails immediately still gets a proper HTTP status.
	first, ok := <-events
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream_failed", "turn produced no events", h.logger)
		return
	}
	if first.Type == agent.EventError {
		writeError(w, http.StatusInternalServerError, "stream_failed", first.Data, h.logger)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	h.logger.Debug("stream started", "session_id", req.SessionID,
		"request_id", requestIDFromContext(ctx))

	completed := false
	ev := first
	for {
		if ev.Type == agent.EventError {
			h.logger.Warn("turn failed mid-stream",
				"session_id", req.SessionID, "error", ev.Data)
			return
		}
		if err := writer.Write(ctx, sse.Record{Type: string(ev.Type), Data: ev.Data}); err != nil {
			h.logger.Debug("client disconnected", "session_id", req.SessionID, "error", err)
			return
		}
		if ev.Type == agent.EventEnd {
			completed = true
			break
		}

		var open bool
		ev, open = <-events
		if !open {
			break
		}
	}

	if completed && h.titles != nil {
		h.titles.Schedule(req.SessionID)
	}
}

// userFromSession derives the recorded owner from a session ID of the form
// "<username>-<suffix>". Only the first dash-separated segment is
// recoverable here, so the value is informational; conversation listing
// matches on the session ID prefix instead. IDs without a dash belong to
// themselves.
func userFromSession(sessionID string) string {
	if user, _, found := strings.Cut(sessionID, "-"); found {
		return user
	}
	return sessionID
}
