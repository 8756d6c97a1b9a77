package run

import (
	"log/slog"

	"github.com/google/uuid"

	"tavolo/internal/protocol"
	"tavolo/internal/statedoc"
)

// milestoneProgress maps phases whose visibility matters to the progress
// value an observer must see alongside them. When a phase delta reaches one
// of these without a progress patch of its own, the emitter appends one.
var milestoneProgress = map[string]float64{
	statedoc.PhaseRestaurantsFound: 0.5,
	statedoc.PhasePresenting:       0.7,
}

// displayNames formats tool-call display names per category.
var displayNames = map[string]string{
	"search":    "Restaurant Search Task",
	"recommend": "Recommendation Generation Task",
	"feedback":  "Feedback Processing Task",
}

// Emitter converts lifecycle signals into ordered protocol events, all tagged
// with one stable message id per run. It owns the run's state document: every
// mutation goes through StateDelta.
type Emitter struct {
	messageID string
	doc       *statedoc.Document
	sink      func(protocol.Event)
}

func NewEmitter(messageID string, doc *statedoc.Document, sink func(protocol.Event)) *Emitter {
	return &Emitter{messageID: messageID, doc: doc, sink: sink}
}

// Snapshot emits the full current state. Exactly one snapshot opens a run's
// visible state; everything after is a delta.
func (e *Emitter) Snapshot() {
	e.sink(protocol.StateSnapshot{
		Type:      protocol.EventStateSnapshot,
		MessageID: e.messageID,
		Snapshot:  e.doc.Snapshot(),
	})
}

// StateDelta applies patches to the run state and, when at least one actually
// applied, emits a single STATE_DELTA carrying exactly those patches.
func (e *Emitter) StateDelta(patches ...statedoc.Patch) {
	applied := e.doc.Apply(patches)
	if len(applied) == 0 {
		return
	}

	if phase, ok := phaseValue(applied); ok {
		slog.Debug("run: phase change", "phase", phase)
		if progress, milestone := milestoneProgress[phase]; milestone && !hasProgress(applied) {
			extra := e.doc.Apply([]statedoc.Patch{
				{Op: statedoc.OpReplace, Path: "/processing/progress", Value: progress},
			})
			applied = append(applied, extra...)
		}
	}

	e.sink(protocol.StateDelta{
		Type:      protocol.EventStateDelta,
		MessageID: e.messageID,
		Delta:     applied,
	})
}

// Message emits a complete START / CONTENT / END triple for one text
// message. The CONTENT delta is an explicit empty string for empty text.
func (e *Emitter) Message(text string) {
	e.sink(protocol.TextMessageStart{
		Type:      protocol.EventTextMessageStart,
		MessageID: e.messageID,
		Role:      "assistant",
	})
	e.sink(protocol.TextMessageContent{
		Type:      protocol.EventTextMessageContent,
		MessageID: e.messageID,
		Delta:     text,
	})
	e.sink(protocol.TextMessageEnd{
		Type:      protocol.EventTextMessageEnd,
		MessageID: e.messageID,
		Delta:     "",
	})
}

// ToolCall emits a START / ARGS / END triple sharing one generated call id.
// A known category is first folded into processing.currentPhase via a delta.
func (e *Emitter) ToolCall(name string, args map[string]any, category string) {
	if category != "" {
		e.StateDelta(statedoc.Patch{
			Op: statedoc.OpReplace, Path: "/processing/currentPhase", Value: category,
		})
	}

	callID := "call_" + uuid.NewString()[:8]
	display := name
	if d, ok := displayNames[category]; ok {
		display = d
	}

	e.sink(protocol.ToolCallStart{
		Type:         protocol.EventToolCallStart,
		MessageID:    e.messageID,
		ToolCallID:   callID,
		ToolCallName: display,
		Tool:         name,
	})
	e.sink(protocol.ToolCallArgs{
		Type:         protocol.EventToolCallArgs,
		MessageID:    e.messageID,
		ToolCallID:   callID,
		ToolCallName: name,
		Args:         args,
	})
	e.sink(protocol.ToolCallEnd{
		Type:         protocol.EventToolCallEnd,
		MessageID:    e.messageID,
		ToolCallID:   callID,
		ToolCallName: name,
	})
}

func phaseValue(patches []statedoc.Patch) (string, bool) {
	for _, p := range patches {
		if p.Path == "/status/phase" {
			s, ok := p.Value.(string)
			return s, ok
		}
	}
	return "", false
}

func hasProgress(patches []statedoc.Patch) bool {
	for _, p := range patches {
		if p.Path == "/processing/progress" {
			return true
		}
	}
	return false
}
