package agent

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// scriptedGateway replays a fixed sequence of replies, one per Generate
// call. Used by loop tests to drive the state machine without a model.
type scriptedGateway struct {
	mu      sync.Mutex
	replies []*Reply
	errs    []error
	calls   int
	// seen records the message slices passed to Generate.
	seen [][]*ai.Message
	// streamText, when set, is delivered through the stream callback.
	streamText []string
}

func (s *scriptedGateway) Generate(_ context.Context, messages []*ai.Message, stream func(string)) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	s.seen = append(s.seen, messages)

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.streamText) && s.streamText[i] != "" && stream != nil {
		stream(s.streamText[i])
	}
	if i >= len(s.replies) {
		return &Reply{Text: "fallback", Message: ai.NewModelMessage(ai.NewTextPart("fallback"))}, nil
	}
	return s.replies[i], nil
}

func (s *scriptedGateway) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// textReply builds a final-text Reply.
func textReply(text string) *Reply {
	return &Reply{
		Text:    text,
		Message: ai.NewModelMessage(ai.NewTextPart(text)),
	}
}

// toolReply builds a Reply requesting the named tools.
func toolReply(refs ...string) *Reply {
	reply := &Reply{}
	var parts []*ai.Part
	for i, name := range refs {
		req := &ai.ToolRequest{
			Name:  name,
			Ref:   name + "-ref",
			Input: map[string]any{"call": i},
		}
		reply.ToolRequests = append(reply.ToolRequests, req)
		parts = append(parts, ai.NewToolRequestPart(req))
	}
	reply.Message = ai.NewModelMessage(parts...)
	return reply
}

// toolReplyInput builds a Reply requesting one tool with explicit arguments.
func toolReplyInput(name string, input any) *Reply {
	req := &ai.ToolRequest{Name: name, Ref: name + "-ref", Input: input}
	return &Reply{
		ToolRequests: []*ai.ToolRequest{req},
		Message:      ai.NewModelMessage(ai.NewToolRequestPart(req)),
	}
}

// failingStore wraps a Checkpointer and injects errors.
type failingStore struct {
	Checkpointer
	loadErr error
	saveErr error
}

func (f *failingStore) Load(ctx context.Context, sessionID string) ([]*ai.Message, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Checkpointer.Load(ctx, sessionID)
}

func (f *failingStore) Save(ctx context.Context, sessionID, userID string, messages []*ai.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Checkpointer.Save(ctx, sessionID, userID, messages)
}
