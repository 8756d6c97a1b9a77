// Package protocol defines the typed event stream a run emits to its client.
//
// Each event is a self-describing JSON object; the "type" field tags the
// union. A client replays STATE_SNAPSHOT once, then applies every STATE_DELTA
// in order against its last-known document.
package protocol

import "tavolo/internal/statedoc"

type EventType string

const (
	EventRunStarted         EventType = "RUN_STARTED"
	EventRunFinished        EventType = "RUN_FINISHED"
	EventStateSnapshot      EventType = "STATE_SNAPSHOT"
	EventStateDelta         EventType = "STATE_DELTA"
	EventTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTextMessageEnd     EventType = "TEXT_MESSAGE_END"
	EventToolCallStart      EventType = "TOOL_CALL_START"
	EventToolCallArgs       EventType = "TOOL_CALL_ARGS"
	EventToolCallEnd        EventType = "TOOL_CALL_END"
)

// Event is implemented by every protocol event.
type Event interface {
	Kind() EventType
}

type RunStarted struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"thread_id"`
	RunID    string    `json:"run_id"`
}

func (RunStarted) Kind() EventType { return EventRunStarted }

type RunFinished struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"thread_id"`
	RunID    string    `json:"run_id"`
}

func (RunFinished) Kind() EventType { return EventRunFinished }

type StateSnapshot struct {
	Type      EventType      `json:"type"`
	MessageID string         `json:"message_id"`
	Snapshot  map[string]any `json:"snapshot"`
}

func (StateSnapshot) Kind() EventType { return EventStateSnapshot }

// StateDelta carries the patches that were actually applied to the run's
// state document, in application order.
type StateDelta struct {
	Type      EventType        `json:"type"`
	MessageID string           `json:"message_id"`
	Delta     []statedoc.Patch `json:"delta"`
}

func (StateDelta) Kind() EventType { return EventStateDelta }

type TextMessageStart struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"message_id"`
	Role      string    `json:"role"`
}

func (TextMessageStart) Kind() EventType { return EventTextMessageStart }

// TextMessageContent.Delta is always present, an explicit empty string when
// the message carries no text.
type TextMessageContent struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"message_id"`
	Delta     string    `json:"delta"`
}

func (TextMessageContent) Kind() EventType { return EventTextMessageContent }

type TextMessageEnd struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"message_id"`
	Delta     string    `json:"delta"`
}

func (TextMessageEnd) Kind() EventType { return EventTextMessageEnd }

type ToolCallStart struct {
	Type         EventType `json:"type"`
	MessageID    string    `json:"message_id"`
	ToolCallID   string    `json:"toolCallId"`
	ToolCallName string    `json:"toolCallName"`
	Tool         string    `json:"tool"`
}

func (ToolCallStart) Kind() EventType { return EventToolCallStart }

type ToolCallArgs struct {
	Type         EventType      `json:"type"`
	MessageID    string         `json:"message_id"`
	ToolCallID   string         `json:"toolCallId"`
	ToolCallName string         `json:"toolCallName"`
	Args         map[string]any `json:"args"`
}

func (ToolCallArgs) Kind() EventType { return EventToolCallArgs }

type ToolCallEnd struct {
	Type         EventType `json:"type"`
	MessageID    string    `json:"message_id"`
	ToolCallID   string    `json:"toolCallId"`
	ToolCallName string    `json:"toolCallName"`
}

func (ToolCallEnd) Kind() EventType { return EventToolCallEnd }
