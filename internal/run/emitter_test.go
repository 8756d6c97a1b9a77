package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavolo/internal/protocol"
	"tavolo/internal/statedoc"
)

func newTestEmitter() (*Emitter, *[]protocol.Event) {
	events := &[]protocol.Event{}
	doc := statedoc.NewRunState("Tokyo, Japan")
	e := NewEmitter("msg-1", doc, func(ev protocol.Event) {
		*events = append(*events, ev)
	})
	return e, events
}

func TestMessageEmitsOrderedTriple(t *testing.T) {
	e, events := newTestEmitter()
	e.Message("hello")

	require.Len(t, *events, 3)
	start := (*events)[0].(protocol.TextMessageStart)
	content := (*events)[1].(protocol.TextMessageContent)
	end := (*events)[2].(protocol.TextMessageEnd)

	assert.Equal(t, "msg-1", start.MessageID)
	assert.Equal(t, "assistant", start.Role)
	assert.Equal(t, "msg-1", content.MessageID)
	assert.Equal(t, "hello", content.Delta)
	assert.Equal(t, "msg-1", end.MessageID)
	assert.Equal(t, "", end.Delta)
}

func TestMessageEmptyTextStillCarriesExplicitEmptyDelta(t *testing.T) {
	e, events := newTestEmitter()
	e.Message("")

	require.Len(t, *events, 3)
	content := (*events)[1].(protocol.TextMessageContent)
	assert.Equal(t, "", content.Delta)
}

func TestToolCallSharesOneCallID(t *testing.T) {
	e, events := newTestEmitter()
	e.ToolCall("search_restaurants", map[string]any{"location": "Tokyo, Japan"}, "search")

	// currentPhase delta first, then the three tool-call events.
	require.Len(t, *events, 4)
	delta := (*events)[0].(protocol.StateDelta)
	require.Len(t, delta.Delta, 1)
	assert.Equal(t, "/processing/currentPhase", delta.Delta[0].Path)
	assert.Equal(t, "search", delta.Delta[0].Value)

	start := (*events)[1].(protocol.ToolCallStart)
	args := (*events)[2].(protocol.ToolCallArgs)
	end := (*events)[3].(protocol.ToolCallEnd)

	assert.Equal(t, "Restaurant Search Task", start.ToolCallName)
	assert.Equal(t, "search_restaurants", start.Tool)
	assert.Equal(t, start.ToolCallID, args.ToolCallID)
	assert.Equal(t, start.ToolCallID, end.ToolCallID)
	assert.Contains(t, start.ToolCallID, "call_")
	assert.Equal(t, "Tokyo, Japan", args.Args["location"])
}

func TestToolCallUnknownCategorySkipsPhaseDelta(t *testing.T) {
	e, events := newTestEmitter()
	e.ToolCall("custom_tool", nil, "")

	require.Len(t, *events, 3)
	_, ok := (*events)[0].(protocol.ToolCallStart)
	assert.True(t, ok)
}

func TestStateDeltaEmitsOnlyAppliedPatches(t *testing.T) {
	e, events := newTestEmitter()
	e.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/stage", Value: "searching"},
		statedoc.Patch{Op: statedoc.OpRemove, Path: "/status/nonexistent"},
	)

	require.Len(t, *events, 1)
	delta := (*events)[0].(protocol.StateDelta)
	require.Len(t, delta.Delta, 1)
	assert.Equal(t, "/search/stage", delta.Delta[0].Path)
}

func TestStateDeltaNothingAppliedEmitsNothing(t *testing.T) {
	e, events := newTestEmitter()
	e.StateDelta(
		statedoc.Patch{Op: statedoc.OpRemove, Path: "/status/nonexistent"},
	)
	assert.Empty(t, *events)
}

func TestStateDeltaMilestonePhaseGetsSyntheticProgress(t *testing.T) {
	e, events := newTestEmitter()
	e.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseRestaurantsFound},
	)

	require.Len(t, *events, 1)
	delta := (*events)[0].(protocol.StateDelta)
	require.Len(t, delta.Delta, 2)
	assert.Equal(t, "/processing/progress", delta.Delta[1].Path)
	assert.Equal(t, 0.5, delta.Delta[1].Value)
}

func TestStateDeltaMilestoneWithExplicitProgressLeftAlone(t *testing.T) {
	e, events := newTestEmitter()
	e.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhasePresenting},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.7},
	)

	require.Len(t, *events, 1)
	delta := (*events)[0].(protocol.StateDelta)
	assert.Len(t, delta.Delta, 2)
}

func TestStateDeltaNonMilestonePhaseNoSyntheticProgress(t *testing.T) {
	e, events := newTestEmitter()
	e.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseSearching},
	)

	require.Len(t, *events, 1)
	delta := (*events)[0].(protocol.StateDelta)
	assert.Len(t, delta.Delta, 1)
}
