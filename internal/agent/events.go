package agent

// EventType identifies a progress event emitted while a query runs.
type EventType string

const (
	EventAgentStart  EventType = "agent_start"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventThumbnail   EventType = "thumbnail"
	EventAnswerStart EventType = "answer_start"
	EventAnswerChunk EventType = "answer_chunk"
	EventAnswerEnd   EventType = "answer_end"
	EventDone        EventType = "done"
	EventError       EventType = "error"
)

// Event is one progress notification. Data holds the type-specific payload.
type Event struct {
	Type EventType
	Data map[string]any
}

// Emitter receives events as the loop produces them. A non-nil error stops
// the run; the loop treats it as the client going away.
type Emitter func(Event) error
