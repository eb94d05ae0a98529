package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thetealover/aichat/internal/agent"
)

func postChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatStream(t *testing.T) {
	runner := &stubRunner{events: []agent.Event{
		{Type: agent.EventChunk, Data: "4"},
		{Type: agent.EventEnd},
	}}
	titles := &stubScheduler{}
	srv := newTestServer(t, ServerConfig{Runner: runner, Titles: titles})

	rec := postChat(t, srv, `{"message":"What is 2+2?","session_id":"alice-1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}

	want := "data: {\"type\":\"chunk\",\"data\":\"4\"}\n\n" +
		"data: {\"type\":\"end\",\"data\":\"\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}

	if got := titles.scheduled(); len(got) != 1 || got[0] != "alice-1" {
		t.Errorf("scheduled = %v, want [alice-1]", got)
	}
}

func TestChatStreamDerivesUser(t *testing.T) {
	runner := &stubRunner{events: []agent.Event{{Type: agent.EventEnd}}}
	srv := newTestServer(t, ServerConfig{Runner: runner})

	postChat(t, srv, `{"message":"hi","session_id":"alice-42"}`)

	if len(runner.seen) != 1 {
		t.Fatalf("runner saw %d requests", len(runner.seen))
	}
	req := runner.seen[0]
	if req.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", req.UserID)
	}
	if req.SessionID != "alice-42" {
		t.Errorf("SessionID = %q", req.SessionID)
	}
	if req.Input != "hi" {
		t.Errorf("Input = %q", req.Input)
	}
}

func TestChatStreamToolEvents(t *testing.T) {
	runner := &stubRunner{events: []agent.Event{
		{Type: agent.EventToolStart, Data: "web_search"},
		{Type: agent.EventChunk, Data: "found it"},
		{Type: agent.EventEnd},
	}}
	srv := newTestServer(t, ServerConfig{Runner: runner})

	rec := postChat(t, srv, `{"message":"search","session_id":"bob-1"}`)

	want := "data: {\"type\":\"tool_start\",\"data\":\"web_search\"}\n\n" +
		"data: {\"type\":\"chunk\",\"data\":\"found it\"}\n\n" +
		"data: {\"type\":\"end\",\"data\":\"\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestChatStreamErrorBeforeFirstByte(t *testing.T) {
	runner := &stubRunner{events: []agent.Event{
		{Type: agent.EventError, Data: "model call failed"},
	}}
	titles := &stubScheduler{}
	srv := newTestServer(t, ServerConfig{Runner: runner, Titles: titles})

	rec := postChat(t, srv, `{"message":"hi","session_id":"alice-1"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if !strings.Contains(rec.Body.String(), "model call failed") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := titles.scheduled(); len(got) != 0 {
		t.Errorf("scheduled = %v, want none", got)
	}
}

func TestChatStreamErrorMidStream(t *testing.T) {
	runner := &stubRunner{events: []agent.Event{
		{Type: agent.EventChunk, Data: "partial"},
		{Type: agent.EventError, Data: "save failed"},
	}}
	titles := &stubScheduler{}
	srv := newTestServer(t, ServerConfig{Runner: runner, Titles: titles})

	rec := postChat(t, srv, `{"message":"hi","session_id":"alice-1"}`)

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"chunk"`) {
		t.Errorf("body %q missing first chunk", body)
	}
	if strings.Contains(body, `"type":"end"`) {
		t.Errorf("body %q must not contain end after failure", body)
	}
	if strings.Contains(body, "save failed") {
		t.Errorf("body %q leaks the error into the stream", body)
	}
	if got := titles.scheduled(); len(got) != 0 {
		t.Errorf("scheduled = %v, want none", got)
	}
}

func TestChatStreamValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed body", `{invalid`, "invalid_request"},
		{"missing session_id", `{"message":"hi"}`, "missing_session_id"},
		{"missing message", `{"session_id":"alice-1"}`, "missing_message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			srv := newTestServer(t, ServerConfig{Runner: runner})

			rec := postChat(t, srv, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.code) {
				t.Errorf("body = %q, want code %q", rec.Body.String(), tt.code)
			}
			if len(runner.seen) != 0 {
				t.Error("runner should not be invoked on invalid input")
			}
		})
	}
}

func TestUserFromSession(t *testing.T) {
	tests := []struct {
		sessionID string
		want      string
	}{
		{"alice-1", "alice"},
		{"alice-abc-def", "alice"},
		{"nodash", "nodash"},
		{"-leading", ""},
	}
	for _, tt := range tests {
		if got := userFromSession(tt.sessionID); got != tt.want {
			t.Errorf("userFromSession(%q) = %q, want %q", tt.sessionID, got, tt.want)
		}
	}
}
