// Package agent implements the conversational agent loop.
//
// A turn is a small state machine: the loop alternates between awaiting the
// model and awaiting tools until the model produces a final text reply. The
// full message sequence is checkpointed exactly once, after the turn
// completes; the end event is emitted only after that save succeeds, so a
// client that sees "end" knows the turn is durable.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/thetealover/aichat/internal/log"
	"github.com/thetealover/aichat/internal/tools"
)

// State names the loop's position in a turn.
type State string

const (
	// StateAwaitingModel means the next step is a model call.
	StateAwaitingModel State = "AWAITING_MODEL"
	// StateAwaitingTool means the model requested tools that must run.
	StateAwaitingTool State = "AWAITING_TOOL"
	// StateDone means the model produced a final reply.
	StateDone State = "DONE"
)

// Checkpointer persists conversation state. Save is the turn's single
// atomic commit point.
type Checkpointer interface {
	Load(ctx context.Context, sessionID string) ([]*ai.Message, error)
	Save(ctx context.Context, sessionID, userID string, messages []*ai.Message) error
}

// Request is one user turn.
type Request struct {
	SessionID string
	UserID    string
	Input     string
}

// Loop runs agent turns.
type Loop struct {
	gateway  ModelGateway
	store    Checkpointer
	registry *tools.Registry
	logger   log.Logger

	systemPrompt string
	maxTurns     int
	dispatchAll  bool
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Gateway  ModelGateway
	Store    Checkpointer
	Registry *tools.Registry
	Logger   log.Logger

	// SystemPrompt is prepended to model calls when the history has no
	// leading system message. Empty disables the prepend.
	SystemPrompt string
	// MaxTurns bounds model round-trips per request (default 8).
	MaxTurns int
	// DispatchAll runs every tool request the model returns. When false,
	// only the first request is dispatched and the rest are dropped.
	DispatchAll bool
}

// NewLoop creates a Loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("model gateway is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("checkpointer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 8
	}

	return &Loop{
		gateway:      cfg.Gateway,
		store:        cfg.Store,
		registry:     cfg.Registry,
		logger:       cfg.Logger,
		systemPrompt: cfg.SystemPrompt,
		maxTurns:     cfg.MaxTurns,
		dispatchAll:  cfg.DispatchAll,
	}, nil
}

// Run executes one turn and streams its events.
//
// The returned channel is closed when the turn finishes, whether it
// completed, failed, or was abandoned. Event delivery respects ctx: if the
// consumer goes away, the producer goroutine stops instead of blocking.
func (l *Loop) Run(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)
		l.run(ctx, req, events)
	}()
	return events
}

func (l *Loop) run(ctx context.Context, req Request, events chan<- Event) {
	emit := func(e Event) bool {
		select {
		case events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// fail emits a client-safe message; the underlying cause stays in the
	// server log only.
	fail := func(public string, cause error) {
		if cause != nil {
			l.logger.Error("turn failed", "session_id", req.SessionID, "reason", public, "error", cause)
		} else {
			l.logger.Error("turn failed", "session_id", req.SessionID, "reason", public)
		}
		emit(Event{Type: EventError, Data: public})
	}

	history, err := l.store.Load(ctx, req.SessionID)
	if err != nil {
		fail("failed to load conversation", err)
		return
	}

	// messages holds what will be checkpointed; the system prompt is
	// prepended per model call and never persisted.
	messages := append(history, ai.NewUserMessage(ai.NewTextPart(req.Input)))

	state := StateAwaitingModel
	for turn := 0; turn < l.maxTurns && state == StateAwaitingModel; turn++ {
		streamed := false
		reply, err := l.gateway.Generate(ctx, l.modelView(messages), func(text string) {
			streamed = true
			emit(Event{Type: EventChunk, Data: text})
		})
		if err != nil {
			fail("model call failed", err)
			return
		}

		if reply.Message != nil {
			messages = append(messages, reply.Message)
		}

		if len(reply.ToolRequests) == 0 {
			if !streamed && reply.Text != "" {
				emit(Event{Type: EventChunk, Data: reply.Text})
			}
			state = StateDone
			continue
		}

		state = StateAwaitingTool
		requests := reply.ToolRequests
		if !l.dispatchAll {
			requests = requests[:1]
		}
		for _, toolReq := range requests {
			if !emit(Event{Type: EventToolStart, Data: toolStartData(toolReq)}) {
				return
			}
			messages = append(messages, l.dispatch(ctx, toolReq))
		}
		state = StateAwaitingModel
	}

	if state != StateDone {
		fail(fmt.Sprintf("tool loop did not finish within %d turns", l.maxTurns), nil)
		return
	}

	// The save must survive client disconnects: a turn that reached DONE is
	// committed even if nobody is listening anymore.
	saveCtx := context.WithoutCancel(ctx)
	if err := l.store.Save(saveCtx, req.SessionID, req.UserID, messages); err != nil {
		fail("failed to save conversation", err)
		return
	}

	emit(Event{Type: EventEnd})
}

// toolStartData renders a tool call for stream consumers, showing the
// arguments the tool is about to run with as compact JSON.
func toolStartData(req *ai.ToolRequest) string {
	args, err := json.Marshal(req.Input)
	if err != nil {
		args = []byte(fmt.Sprintf("%v", req.Input))
	}
	return fmt.Sprintf("Using tool with input: `%s`...", args)
}

// modelView returns the messages to send to the model, with the system
// prompt prepended unless the history already starts with one.
func (l *Loop) modelView(messages []*ai.Message) []*ai.Message {
	if l.systemPrompt == "" {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == ai.RoleSystem {
		return messages
	}

	view := make([]*ai.Message, 0, len(messages)+1)
	view = append(view, ai.NewSystemMessage(ai.NewTextPart(l.systemPrompt)))
	return append(view, messages...)
}

// dispatch runs one tool request and returns the tool result message.
//
// Tool failures are recoverable: the error text becomes the tool result so
// the model can react, matching the handling of an unknown tool name.
func (l *Loop) dispatch(ctx context.Context, req *ai.ToolRequest) *ai.Message {
	output := l.execute(ctx, req)
	return ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
		Name:   req.Name,
		Ref:    req.Ref,
		Output: output,
	}))
}

func (l *Loop) execute(ctx context.Context, req *ai.ToolRequest) string {
	if l.registry == nil {
		return fmt.Sprintf("Tool '%s' not found", req.Name)
	}
	tool, ok := l.registry.Get(req.Name)
	if !ok {
		l.logger.Warn("model requested unknown tool", "tool", req.Name)
		return fmt.Sprintf("Tool '%s' not found", req.Name)
	}

	args, ok := req.Input.(map[string]any)
	if !ok && req.Input != nil {
		return fmt.Sprintf("Tool '%s' received malformed arguments", req.Name)
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		l.logger.Warn("tool execution failed", "tool", req.Name, "error", err)
		return err.Error()
	}
	return out
}
