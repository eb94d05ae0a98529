// Package sse provides Server-Sent Events utilities for streaming responses.
//
// The chat protocol uses data-only records: each record is a single
// "data: {json}" line followed by a blank line, with no event name field.
// The JSON payload carries the record type.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Record is one streamed protocol record.
//
// Types emitted during a turn:
//   - "tool_start": Data is a human-readable rendering of the tool call's arguments
//   - "chunk": Data is a text fragment of the assistant reply
//   - "end": Data is empty, sent once after the turn is durably saved
//   - "error": Data is a client-safe message, terminates the stream
type Record struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Writer wraps an http.ResponseWriter for SSE streaming.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// Write sends one protocol record and flushes it to the client.
// Newlines inside the payload are JSON-escaped, so a record is always
// exactly one data line.
func (w *Writer) Write(ctx context.Context, rec Record) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.flusher.Flush()
	return nil
}
