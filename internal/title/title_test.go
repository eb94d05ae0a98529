package title

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/session"
)

// countingModel records calls and returns a fixed title.
type countingModel struct {
	calls  atomic.Int64
	result string
	err    error
}

func (m *countingModel) Generate(_ context.Context, _ string) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	return m.result, nil
}

func seedConversation(t *testing.T, store *session.Memory, sessionID string) {
	t.Helper()
	err := store.Save(context.Background(), sessionID, "alice", []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("plan a trip to Kyoto")),
		ai.NewModelMessage(ai.NewTextPart("Sure, here is an itinerary.")),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func newSummarizer(t *testing.T, model Model, store Store) *Summarizer {
	t.Helper()
	s, err := NewSummarizer(context.Background(), model, store, log.NewNop())
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	return s
}

func TestGenerateSavesTitle(t *testing.T) {
	store := session.NewMemory()
	seedConversation(t, store, "alice-1")
	model := &countingModel{result: `"Kyoto trip planning"` + "\n"}
	s := newSummarizer(t, model, store)

	if err := s.Generate(context.Background(), "alice-1"); err != nil {
		t.Fatalf("Generate() = %v", err)
	}

	exists, err := store.TitleExists(context.Background(), "alice-1")
	if err != nil || !exists {
		t.Fatalf("TitleExists = %v, %v", exists, err)
	}

	conversations, err := store.ConversationsForUser(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	// Quotes and whitespace are stripped before saving
	if conversations[0].Title != "Kyoto trip planning" {
		t.Errorf("title = %q", conversations[0].Title)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	store := session.NewMemory()
	seedConversation(t, store, "s1")
	model := &countingModel{result: "Kyoto trip"}
	s := newSummarizer(t, model, store)

	for i := 0; i < 3; i++ {
		if err := s.Generate(context.Background(), "s1"); err != nil {
			t.Fatalf("Generate() #%d = %v", i, err)
		}
	}

	// Only the first pass may call the model
	if model.calls.Load() != 1 {
		t.Errorf("model called %d times, want 1", model.calls.Load())
	}
}

func TestGenerateEmptyConversation(t *testing.T) {
	store := session.NewMemory()
	model := &countingModel{result: "whatever"}
	s := newSummarizer(t, model, store)

	if err := s.Generate(context.Background(), "empty"); err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if model.calls.Load() != 0 {
		t.Errorf("model called for empty conversation")
	}
	exists, _ := store.TitleExists(context.Background(), "empty")
	if exists {
		t.Error("title saved for empty conversation")
	}
}

func TestGenerateRequiresFullExchange(t *testing.T) {
	store := session.NewMemory()
	// User message only, no model reply yet
	err := store.Save(context.Background(), "s1", "alice", []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("plan a trip to Kyoto")),
	})
	if err != nil {
		t.Fatal(err)
	}
	model := &countingModel{result: "whatever"}
	s := newSummarizer(t, model, store)

	if err := s.Generate(context.Background(), "s1"); err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if model.calls.Load() != 0 {
		t.Errorf("model called before a model reply exists")
	}
	exists, _ := store.TitleExists(context.Background(), "s1")
	if exists {
		t.Error("title saved without a full exchange")
	}
}

func TestGenerateModelFailure(t *testing.T) {
	store := session.NewMemory()
	seedConversation(t, store, "s1")
	model := &countingModel{err: errors.New("quota exceeded")}
	s := newSummarizer(t, model, store)

	if err := s.Generate(context.Background(), "s1"); err == nil {
		t.Fatal("expected error from model failure")
	}

	// No title saved; a later pass may retry
	exists, _ := store.TitleExists(context.Background(), "s1")
	if exists {
		t.Error("title saved despite model failure")
	}
}

func TestGenerateBlankModelOutput(t *testing.T) {
	store := session.NewMemory()
	seedConversation(t, store, "s1")
	model := &countingModel{result: `  ""  `}
	s := newSummarizer(t, model, store)

	if err := s.Generate(context.Background(), "s1"); err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	exists, _ := store.TitleExists(context.Background(), "s1")
	if exists {
		t.Error("blank title should not be saved")
	}
}

func TestScheduleRunsInBackground(t *testing.T) {
	store := session.NewMemory()
	seedConversation(t, store, "s1")
	model := &countingModel{result: "Kyoto trip"}
	s := newSummarizer(t, model, store)

	s.Schedule("s1")
	s.Wait()

	exists, _ := store.TitleExists(context.Background(), "s1")
	if !exists {
		t.Error("scheduled pass did not save a title")
	}
}

func TestCleanTruncatesLongTitles(t *testing.T) {
	long := make([]rune, MaxLength*2)
	for i := range long {
		long[i] = 'x'
	}

	got := clean(string(long))
	if len([]rune(got)) != MaxLength {
		t.Errorf("cleaned length = %d, want %d", len([]rune(got)), MaxLength)
	}
}

func TestFormatHistorySkipsToolTraffic(t *testing.T) {
	messages := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("weather in Taipei?")),
		ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   "get_weather",
			Output: "Sunny",
		})),
		ai.NewModelMessage(ai.NewTextPart("It is sunny.")),
	}

	got := formatHistory(messages)
	want := "User: weather in Taipei?\nAI: It is sunny."
	if got != want {
		t.Errorf("formatHistory = %q, want %q", got, want)
	}
}
