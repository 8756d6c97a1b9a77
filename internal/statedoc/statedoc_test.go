package statedoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReplaceCreatesIntermediateNodes(t *testing.T) {
	doc := New(nil)
	applied := doc.Apply([]Patch{
		{Op: OpReplace, Path: "/status/phase", Value: "initialized"},
	})
	require.Len(t, applied, 1)

	v, ok := doc.Get("/status/phase")
	require.True(t, ok)
	assert.Equal(t, "initialized", v)
}

func TestApplyAddAppendsToSequence(t *testing.T) {
	doc := New(map[string]any{
		"search": map[string]any{
			"restaurants": []any{"a"},
		},
	})
	applied := doc.Apply([]Patch{
		{Op: OpAdd, Path: "/search/restaurants/-", Value: "b"},
	})
	require.Len(t, applied, 1)

	v, ok := doc.Get("/search/restaurants")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestApplyAddOnMappingBehavesLikeReplace(t *testing.T) {
	doc := New(nil)
	applied := doc.Apply([]Patch{
		{Op: OpAdd, Path: "/ui/activeTab", Value: "chat"},
	})
	require.Len(t, applied, 1)
	assert.Equal(t, "chat", doc.GetString("/ui/activeTab"))
}

func TestApplyRemoveAbsentKeyIsSilentlySkipped(t *testing.T) {
	doc := New(map[string]any{"status": map[string]any{}})
	applied := doc.Apply([]Patch{
		{Op: OpRemove, Path: "/status/error"},
	})
	assert.Empty(t, applied)
}

func TestApplyRemoveExistingKey(t *testing.T) {
	doc := New(map[string]any{"status": map[string]any{"error": "boom"}})
	applied := doc.Apply([]Patch{
		{Op: OpRemove, Path: "/status/error"},
	})
	require.Len(t, applied, 1)
	_, ok := doc.Get("/status/error")
	assert.False(t, ok)
}

func TestApplyMalformedPatchDoesNotAbortBatch(t *testing.T) {
	doc := New(map[string]any{
		"processing": map[string]any{"progress": 0.1},
	})
	applied := doc.Apply([]Patch{
		{Op: OpReplace, Path: "/processing/progress/impossible", Value: 1}, // progress is a scalar
		{Op: OpReplace, Path: "/processing/progress", Value: 0.5},
		{Op: Op("bogus"), Path: "/processing/progress", Value: 0.9},
	})
	require.Len(t, applied, 1)
	assert.Equal(t, "/processing/progress", applied[0].Path)

	v, _ := doc.Get("/processing/progress")
	assert.Equal(t, 0.5, v)
}

func TestListenerReceivesOnlyAppliedPatches(t *testing.T) {
	doc := New(map[string]any{"status": map[string]any{}})
	var got [][]Patch
	doc.OnApply(func(p []Patch) { got = append(got, p) })

	doc.Apply([]Patch{
		{Op: OpReplace, Path: "/status/phase", Value: "searching_restaurants"},
		{Op: OpRemove, Path: "/status/error"}, // absent, skipped
	})
	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, "/status/phase", got[0][0].Path)
}

func TestListenerNotCalledForEmptyBatches(t *testing.T) {
	doc := New(map[string]any{"status": map[string]any{}})
	called := false
	doc.OnApply(func([]Patch) { called = true })

	doc.Apply(nil)
	doc.Apply([]Patch{{Op: OpRemove, Path: "/status/error"}})
	assert.False(t, called)
}

func TestApplyThenInverseRoundTrips(t *testing.T) {
	doc := NewRunState("Tokyo, Japan")
	before := doc.Snapshot()

	forward := []Patch{
		{Op: OpReplace, Path: "/status/phase", Value: "searching_restaurants"},
		{Op: OpReplace, Path: "/processing/progress", Value: 0.25},
	}
	// Capture originals so the inverse can restore them.
	var inverse []Patch
	for _, p := range forward {
		orig, ok := doc.Get(p.Path)
		require.True(t, ok)
		inverse = append(inverse, Patch{Op: OpReplace, Path: p.Path, Value: orig})
	}

	require.Len(t, doc.Apply(forward), len(forward))
	require.Len(t, doc.Apply(inverse), len(inverse))

	assert.Equal(t, before, doc.Snapshot())
}

func TestSnapshotIsADeepCopy(t *testing.T) {
	doc := NewRunState("Rome, Italy")
	snap := doc.Snapshot()
	snap["search"].(map[string]any)["location"] = "tampered"

	assert.Equal(t, "Rome, Italy", doc.GetString("/search/location"))
}

func TestRestoreRunStateCarriesPriorFields(t *testing.T) {
	prior := map[string]any{
		"search": map[string]any{
			"location":    "Rome, Italy",
			"restaurants": []any{map[string]any{"id": "rest_0", "name": "Da Enzo"}},
		},
		"processing": map[string]any{
			"recommendations": "a long list of places in Rome",
		},
	}
	doc := RestoreRunState(prior)

	assert.Equal(t, "Rome, Italy", doc.GetString("/search/location"))
	assert.Equal(t, "Rome, Italy", doc.GetString("/search/query"))
	assert.Equal(t, "a long list of places in Rome", doc.GetString("/processing/recommendations"))

	found, _ := doc.Get("/search/restaurants_found")
	assert.Equal(t, 1, found)
}

func TestRestoreRunStateNilPriorYieldsFreshState(t *testing.T) {
	doc := RestoreRunState(nil)
	assert.Equal(t, PhaseInitialized, doc.GetString("/status/phase"))
	assert.Equal(t, "", doc.GetString("/search/location"))
}
