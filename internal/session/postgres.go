package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thetealover/aichat/internal/log"
)

// Store manages session persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines. Saves for the
// same session are serialized both in-process (keyedMutex) and in the
// database (the conversation row is locked for the transaction).
type Store struct {
	pool   *pgxpool.Pool
	locks  *keyedMutex
	logger log.Logger
}

// NewStore creates a PostgreSQL-backed Store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		pool:   pool,
		locks:  newKeyedMutex(),
		logger: logger,
	}, nil
}

// Load returns the authoritative message sequence for a session.
// A session with no checkpoints yields an empty history, not an error.
func (s *Store) Load(ctx context.Context, sessionID string) ([]*ai.Message, error) {
	var state []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM checkpoints
		 WHERE session_id = $1
		 ORDER BY sequence_number DESC
		 LIMIT 1`,
		sessionID,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint for session %s: %w", sessionID, err)
	}

	var messages []*ai.Message
	if err := json.Unmarshal(state, &messages); err != nil {
		return nil, fmt.Errorf("decoding checkpoint for session %s: %w", sessionID, err)
	}
	return messages, nil
}

// Save atomically writes the full message sequence as the next checkpoint.
//
// The conversation row is upserted first and its lock held for the
// transaction, so concurrent saves for the same session cannot allocate the
// same sequence number. userID associates the conversation with its owner
// on first save.
func (s *Store) Save(ctx context.Context, sessionID, userID string, messages []*ai.Message) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding checkpoint for session %s: %w", sessionID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkpoint transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Upsert locks the conversation row until commit
	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (session_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET updated_at = now()`,
		sessionID, userID,
	); err != nil {
		return fmt.Errorf("upserting conversation %s: %w", sessionID, err)
	}

	var sequence int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO checkpoints (session_id, sequence_number, state)
		 SELECT $1, COALESCE(MAX(sequence_number), 0) + 1, $2
		 FROM checkpoints WHERE session_id = $1
		 RETURNING sequence_number`,
		sessionID, state,
	).Scan(&sequence); err != nil {
		return fmt.Errorf("inserting checkpoint for session %s: %w", sessionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkpoint for session %s: %w", sessionID, err)
	}

	s.logger.Debug("checkpoint saved",
		"session_id", sessionID,
		"sequence", sequence,
		"messages", len(messages))
	return nil
}

// TitleExists reports whether a title has already been generated for the
// session. A missing conversation row counts as no title.
func (s *Store) TitleExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT title IS NOT NULL FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking title for session %s: %w", sessionID, err)
	}
	return exists, nil
}

// SaveTitle upserts the generated title for a session.
func (s *Store) SaveTitle(ctx context.Context, sessionID, title string) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (session_id, title)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET title = EXCLUDED.title`,
		sessionID, title,
	); err != nil {
		return fmt.Errorf("saving title for session %s: %w", sessionID, err)
	}
	return nil
}

// ConversationsForUser lists a user's conversations, most recently updated
// first. Ownership follows the session ID convention "<username>-<suffix>",
// so the match is a prefix scan over session_id rather than the user_id
// column, which only records the first dash-separated segment. The display
// title falls back to the first message content of the latest checkpoint,
// then to DefaultTitle.
func (s *Store) ConversationsForUser(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.session_id,
		        COALESCE(c.title, cp.state->0->'content'->0->>'text', $2),
		        c.created_at,
		        c.updated_at
		 FROM conversations c
		 LEFT JOIN LATERAL (
		     SELECT state FROM checkpoints
		     WHERE session_id = c.session_id
		     ORDER BY sequence_number DESC
		     LIMIT 1
		 ) cp ON true
		 WHERE c.session_id LIKE $1 || '-%'
		 ORDER BY c.updated_at DESC`,
		userID, DefaultTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.SessionID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}
