// Package session provides conversation persistence.
//
// History is stored as append-only checkpoints: each Save writes the full
// message sequence as a new snapshot row, and the row with the highest
// sequence number is authoritative. Earlier snapshots are retained.
//
// Conversation metadata (title, timestamps) lives in a separate table keyed
// by session ID. Titles are nullable; listing falls back to the first
// message content.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound indicates no conversation exists for the session ID.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTitle is the listing fallback when a conversation has neither a
// generated title nor any messages.
const DefaultTitle = "new chat"

// Conversation summarizes one session for listing.
type Conversation struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// keyedMutex serializes operations per session key.
// Writers for different sessions proceed concurrently; writers for the same
// session queue up, so checkpoint sequence numbers never race.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key, creating it on first use.
// Returns the unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
