package agent

// EventType enumerates the protocol records a turn can emit.
type EventType string

const (
	// EventToolStart announces a tool dispatch; Data is a human-readable
	// rendering of the call's arguments.
	EventToolStart EventType = "tool_start"
	// EventChunk carries a fragment of the assistant's text reply.
	EventChunk EventType = "chunk"
	// EventEnd marks a completed turn. Emitted exactly once, only after the
	// checkpoint is durably saved.
	EventEnd EventType = "end"
	// EventError terminates the turn; Data is a client-safe message.
	EventError EventType = "error"
)

// Event is one record streamed to the client during a turn.
type Event struct {
	Type EventType `json:"type"`
	Data string    `json:"data"`
}
