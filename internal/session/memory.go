package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// Memory is an in-memory Store equivalent for tests and local development.
// It keeps the same append-only snapshot semantics as the PostgreSQL store.
type Memory struct {
	mu    sync.Mutex
	locks *keyedMutex

	snapshots map[string][][]byte // session_id -> ordered checkpoint states
	meta      map[string]*memoryConversation
}

type memoryConversation struct {
	userID    string
	title     *string
	createdAt time.Time
	updatedAt time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		locks:     newKeyedMutex(),
		snapshots: make(map[string][][]byte),
		meta:      make(map[string]*memoryConversation),
	}
}

// Load returns the latest snapshot for a session, or nil for an unknown one.
func (m *Memory) Load(_ context.Context, sessionID string) ([]*ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := m.snapshots[sessionID]
	if len(states) == 0 {
		return nil, nil
	}

	var messages []*ai.Message
	if err := json.Unmarshal(states[len(states)-1], &messages); err != nil {
		return nil, fmt.Errorf("decoding checkpoint for session %s: %w", sessionID, err)
	}
	return messages, nil
}

// Save appends a new snapshot holding the full message sequence.
func (m *Memory) Save(_ context.Context, sessionID, userID string, messages []*ai.Message) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	state, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding checkpoint for session %s: %w", sessionID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	conv, ok := m.meta[sessionID]
	if !ok {
		conv = &memoryConversation{userID: userID, createdAt: now}
		m.meta[sessionID] = conv
	}
	conv.updatedAt = now

	m.snapshots[sessionID] = append(m.snapshots[sessionID], state)
	return nil
}

// SnapshotCount reports how many checkpoints exist for a session.
func (m *Memory) SnapshotCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots[sessionID])
}

// TitleExists reports whether a title was saved for the session.
func (m *Memory) TitleExists(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.meta[sessionID]
	return ok && conv.title != nil, nil
}

// SaveTitle upserts the title for a session.
func (m *Memory) SaveTitle(_ context.Context, sessionID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	conv, ok := m.meta[sessionID]
	if !ok {
		conv = &memoryConversation{createdAt: now}
		m.meta[sessionID] = conv
	}
	conv.title = &title
	conv.updatedAt = now
	return nil
}

// ConversationsForUser lists a user's conversations, most recently updated
// first, with the same session-ID-prefix ownership and title fallback as the
// PostgreSQL store.
func (m *Memory) ConversationsForUser(_ context.Context, userID string) ([]Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conversations []Conversation
	for sessionID, conv := range m.meta {
		if !strings.HasPrefix(sessionID, userID+"-") {
			continue
		}

		title := DefaultTitle
		switch {
		case conv.title != nil:
			title = *conv.title
		default:
			if t := m.firstMessageTextLocked(sessionID); t != "" {
				title = t
			}
		}

		conversations = append(conversations, Conversation{
			SessionID: sessionID,
			Title:     title,
			CreatedAt: conv.createdAt,
			UpdatedAt: conv.updatedAt,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (m *Memory) firstMessageTextLocked(sessionID string) string {
	states := m.snapshots[sessionID]
	if len(states) == 0 {
		return ""
	}

	var messages []*ai.Message
	if err := json.Unmarshal(states[len(states)-1], &messages); err != nil {
		return ""
	}
	if len(messages) == 0 || len(messages[0].Content) == 0 {
		return ""
	}
	return messages[0].Content[0].Text
}
