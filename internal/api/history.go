package api

import (
	"context"
	"net/http"

	"github.com/firebase/genkit/go/ai"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/session"
)

// HistoryStore is the read surface the history endpoints need.
// Both *session.Store and *session.Memory satisfy it.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]*ai.Message, error)
	ConversationsForUser(ctx context.Context, userID string) ([]session.Conversation, error)
}

// historyHandler serves GET /history/{session_id} and
// GET /conversations/{username}.
type historyHandler struct {
	store  HistoryStore
	logger log.Logger
}

// messages returns the full ordered message history for a session,
// or an empty array for a session that has never been saved.
func (h *historyHandler) messages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required", h.logger)
		return
	}

	msgs, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("loading history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history", h.logger)
		return
	}
	if msgs == nil {
		msgs = []*ai.Message{}
	}

	writeJSON(w, http.StatusOK, msgs, h.logger)
}

type conversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

// conversations lists a user's sessions, most recently active first.
func (h *historyHandler) conversations(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing_username", "username is required", h.logger)
		return
	}

	convs, err := h.store.ConversationsForUser(r.Context(), username)
	if err != nil {
		h.logger.Error("listing conversations", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations", h.logger)
		return
	}

	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationResponse{
			ConversationID: c.SessionID,
			Title:          c.Title,
		})
	}

	writeJSON(w, http.StatusOK, out, h.logger)
}
