// Package title generates conversation titles in the background.
//
// After a turn completes, the API schedules a best-effort title pass: if the
// conversation has no title yet, a cheap model summarizes the exchange and
// the result is saved. The pass is idempotent, so scheduling it after every
// turn is safe; only the first one writes.
package title

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/thetealover/aichat/internal/log"
)

// MaxLength caps generated titles, in runes.
const MaxLength = 80

// generationTimeout bounds one background title pass.
const generationTimeout = 10 * time.Second

// historyMaxRunes caps the conversation text handed to the model.
const historyMaxRunes = 2000

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a chat conversation based on the exchange below.
The title should capture the main topic or intent.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Conversation:
%%s

Title:`, MaxLength)

// Store is the persistence surface the summarizer needs.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]*ai.Message, error)
	TitleExists(ctx context.Context, sessionID string) (bool, error)
	SaveTitle(ctx context.Context, sessionID, title string) error
}

// Model produces a title from a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenkitModel calls the configured title model through Genkit.
type GenkitModel struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitModel creates a title model.
// modelName is provider-qualified, e.g. "googleai/gemini-2.5-flash-lite".
func NewGenkitModel(g *genkit.Genkit, modelName string) (*GenkitModel, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GenkitModel{g: g, modelName: modelName}, nil
}

// Generate runs one deterministic title generation.
func (m *GenkitModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(map[string]any{"temperature": 0.0}),
	)
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	return resp.Text(), nil
}

// Summarizer generates and saves conversation titles.
type Summarizer struct {
	model  Model
	store  Store
	logger log.Logger

	bgCtx context.Context
	wg    sync.WaitGroup
}

// NewSummarizer creates a Summarizer.
//
// bgCtx governs background passes independently of request contexts; cancel
// it during shutdown and then Wait for in-flight passes.
func NewSummarizer(bgCtx context.Context, model Model, store Store, logger log.Logger) (*Summarizer, error) {
	if model == nil {
		return nil, fmt.Errorf("title model is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Summarizer{
		model:  model,
		store:  store,
		logger: logger,
		bgCtx:  bgCtx,
	}, nil
}

// Schedule runs a title pass for the session in the background.
func (s *Summarizer) Schedule(sessionID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.bgCtx, generationTimeout)
		defer cancel()

		if err := s.Generate(ctx, sessionID); err != nil {
			s.logger.Warn("title generation failed", "session_id", sessionID, "error", err)
		}
	}()
}

// Wait blocks until all scheduled passes finish. Called during shutdown.
func (s *Summarizer) Wait() {
	s.wg.Wait()
}

// Generate runs one idempotent title pass: it does nothing if a title
// already exists or the conversation has no user/model exchange yet.
func (s *Summarizer) Generate(ctx context.Context, sessionID string) error {
	exists, err := s.store.TitleExists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("checking title: %w", err)
	}
	if exists {
		return nil
	}

	messages, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	if !hasExchange(messages) {
		return nil
	}

	history := formatHistory(messages)
	if history == "" {
		return nil
	}

	raw, err := s.model.Generate(ctx, fmt.Sprintf(titlePrompt, history))
	if err != nil {
		return err
	}

	title := clean(raw)
	if title == "" {
		return nil
	}

	if err := s.store.SaveTitle(ctx, sessionID, title); err != nil {
		return fmt.Errorf("saving title: %w", err)
	}
	s.logger.Info("conversation title saved", "session_id", sessionID, "title", title)
	return nil
}

// hasExchange reports whether the conversation holds at least one user
// message and one model reply with text. A title is only meaningful once a
// full exchange exists.
func hasExchange(messages []*ai.Message) bool {
	var user, model bool
	for _, msg := range messages {
		if messageText(msg) == "" {
			continue
		}
		switch msg.Role {
		case ai.RoleUser:
			user = true
		case ai.RoleModel:
			model = true
		}
	}
	return user && model
}

// formatHistory renders the user/model exchange as plain text.
// Tool traffic is omitted; it does not help the title.
func formatHistory(messages []*ai.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		var speaker string
		switch msg.Role {
		case ai.RoleUser:
			speaker = "User"
		case ai.RoleModel:
			speaker = "AI"
		default:
			continue
		}

		text := messageText(msg)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, text)
	}

	history := strings.TrimSpace(b.String())
	runes := []rune(history)
	if len(runes) > historyMaxRunes {
		history = string(runes[:historyMaxRunes])
	}
	return history
}

func messageText(msg *ai.Message) string {
	var parts []string
	for _, p := range msg.Content {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// clean normalizes model output into a storable title.
func clean(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"`)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > MaxLength {
		title = string(runes[:MaxLength-3]) + "..."
	}
	return title
}
