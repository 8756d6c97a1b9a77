// Package run drives a single restaurant-recommendation run through its phase
// machine, emitting protocol events as it goes. One Controller handles one
// run end to end; the RunState document and its patch log have no other
// writer for the run's lifetime.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"tavolo/internal/extract"
	"tavolo/internal/guard"
	"tavolo/internal/protocol"
	"tavolo/internal/recommend"
	"tavolo/internal/statedoc"
	"tavolo/internal/tasks"
	"tavolo/internal/trace"
)

// Input is one decoded inbound request.
type Input struct {
	ThreadID         string
	RunID            string
	Location         string
	Feedback         string         // raw feedback payload; empty for initial runs
	OriginalLocation string         // explicit location override for feedback runs
	PriorState       map[string]any // caller-held snapshot of the previous run, or nil
}

type Option func(*Controller)

// WithSettle overrides the pause after phase-changing deltas (phase) and
// after other progress deltas (delta). The pauses guarantee an observer
// rendering snapshots sees every intermediate phase, not only the final one;
// ordering is preserved even at zero.
func WithSettle(phase, delta time.Duration) Option {
	return func(c *Controller) {
		c.settlePhase = phase
		c.settleDelta = delta
	}
}

// Controller is the phase state machine for one run.
type Controller struct {
	registry *tasks.Registry
	sink     func(protocol.Event)

	settlePhase time.Duration
	settleDelta time.Duration

	doc       *statedoc.Document
	emitter   *Emitter
	threadID  string
	runID     string
	messageID string

	// Dedicated slots holding the original results out of band of the state
	// document. They survive an in-process continuation; across processes the
	// caller-resupplied snapshot stands in for them (see recommend.Resolve).
	originalRecommendations string
	originalLocation        string
	originalRestaurants     []extract.Restaurant
}

func New(registry *tasks.Registry, sink func(protocol.Event), opts ...Option) *Controller {
	c := &Controller{
		registry:    registry,
		sink:        sink,
		settlePhase: 1500 * time.Millisecond,
		settleDelta: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes an initial request: search, recommend, then await feedback.
func (c *Controller) Run(ctx context.Context, in Input) error {
	ctx, span := trace.Tracer().Start(ctx, "run.initial",
		oteltrace.WithAttributes(
			attribute.String("thread.id", in.ThreadID),
			attribute.String("run.location", in.Location),
		),
	)
	defer span.End()

	c.begin(in, statedoc.NewRunState(in.Location))
	location := in.Location

	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseSearching},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/stage", Value: "searching"},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/inProgress", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/currentPhase", Value: "search"},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.1},
	)
	c.settle(ctx, c.settlePhase)

	c.emitter.Message("Starting restaurant search in " + location)

	searchTask, ok := c.registry.Get(tasks.KindSearch)
	if !ok {
		return c.fail(span, fmt.Errorf("%w: %s", ErrTaskNotFound, tasks.KindSearch))
	}
	c.emitter.ToolCall("search_restaurants", map[string]any{"location": location}, "search")
	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.25},
	)
	c.settle(ctx, c.settleDelta)

	rawSearch, err := c.invoke(ctx, tasks.KindSearch, searchTask, tasks.Inputs{Location: location})
	if err != nil {
		return c.fail(span, err)
	}

	restaurants := extract.Restaurants(rawSearch)
	c.originalRestaurants = restaurants

	c.emitter.Message(fmt.Sprintf("Found %d restaurants in %s!", len(restaurants), location))
	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseRestaurantsFound},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/stage", Value: "found"},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/restaurants_found", Value: len(restaurants)},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/restaurants", Value: restaurants},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/ui/showRestaurants", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.6},
	)
	c.settle(ctx, c.settlePhase)

	recommendTask, ok := c.registry.Get(tasks.KindRecommend)
	if !ok {
		return c.fail(span, fmt.Errorf("%w: %s", ErrTaskNotFound, tasks.KindRecommend))
	}
	c.emitter.ToolCall("present_recommendations",
		map[string]any{"location": location, "restaurant_data": rawSearch}, "recommend")
	c.emitter.Message("Creating personalized restaurant recommendations...")
	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhasePresenting},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.7},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/currentPhase", Value: "recommend"},
	)
	c.settle(ctx, c.settlePhase)

	recommendations, err := c.invoke(ctx, tasks.KindRecommend, recommendTask, tasks.Inputs{
		Location:       location,
		RestaurantData: rawSearch,
	})
	if err != nil {
		return c.fail(span, err)
	}

	// Keep the original recommendations both in the state document and in the
	// dedicated slots, so they survive either kind of continuation.
	c.originalRecommendations = recommendations
	c.originalLocation = location

	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseAwaitFeedback},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/search/completed", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/completed", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/inProgress", Value: false},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 1.0},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/recommendations", Value: recommendations},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/ui/showFeedbackPrompt", Value: true},
	)
	c.emitter.Message(recommendations)
	c.emitter.ToolCall("provideFeedback", map[string]any{
		"feedbackOptions": statedoc.DefaultFeedbackOptions,
		"message":         "How do you feel about these recommendations?",
	}, "feedback")

	c.finish()
	return nil
}

// RunFeedback processes a feedback continuation, resuming directly at the
// processing_feedback phase from the caller-resupplied snapshot.
func (c *Controller) RunFeedback(ctx context.Context, in Input) error {
	ctx, span := trace.Tracer().Start(ctx, "run.feedback",
		oteltrace.WithAttributes(attribute.String("thread.id", in.ThreadID)),
	)
	defer span.End()

	payload := parseFeedback(in.Feedback)

	doc := statedoc.RestoreRunState(in.PriorState)
	location := firstNonEmpty(
		payload.OriginalLocation,
		in.OriginalLocation,
		doc.GetString("/search/location"),
	)
	if location != "" {
		doc.Apply([]statedoc.Patch{
			{Op: statedoc.OpReplace, Path: "/search/location", Value: location},
			{Op: statedoc.OpReplace, Path: "/search/query", Value: location},
		})
	}

	c.begin(in, doc)
	// Repopulate the dedicated slots from the snapshot; across a process
	// boundary this is the only original data we have.
	if rec := doc.GetString("/processing/recommendations"); rec != "" {
		c.originalRecommendations = rec
	}
	c.originalLocation = location
	c.originalRestaurants = restaurantsFromState(doc)

	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseProcessingFeedback},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/inProgress", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/currentPhase", Value: "feedback"},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 0.7},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/feedback", Value: payload.Text},
	)
	c.settle(ctx, c.settlePhase)

	stateRecommendations, _ := c.doc.Get("/processing/recommendations")
	previous := recommend.Resolve(
		c.originalRecommendations,
		stateRecommendations,
		c.originalRestaurants,
		location,
	)

	feedbackTask, ok := c.registry.Get(tasks.KindFeedback)
	if !ok {
		return c.fail(span, fmt.Errorf("%w: %s", ErrTaskNotFound, tasks.KindFeedback))
	}
	c.emitter.ToolCall("respond_to_feedback", map[string]any{
		"location":                 location,
		"feedback":                 payload.Text,
		"previous_recommendations": previous,
	}, "feedback")

	result, err := c.invoke(ctx, tasks.KindFeedback, feedbackTask, tasks.Inputs{
		Location:                location,
		Feedback:                payload.Text,
		PreviousRecommendations: previous,
	})
	if err != nil {
		return c.fail(span, err)
	}

	if guard.Satisfied(payload.Text) {
		result = guard.Check(result, location, previous)
	}

	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseFeedbackCompleted},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/completed", Value: true},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/inProgress", Value: false},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/progress", Value: 1.0},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/currentPhase", Value: "feedback_complete"},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/recommendations", Value: result},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/ui/showFeedbackPrompt", Value: false},
	)
	c.emitter.Message(result)

	c.finish()
	return nil
}

// begin binds the controller to a run, emits RUN_STARTED and the opening
// state snapshot.
func (c *Controller) begin(in Input, doc *statedoc.Document) {
	c.threadID = in.ThreadID
	c.runID = in.RunID
	c.messageID = uuid.NewString()
	c.doc = doc
	c.emitter = NewEmitter(c.messageID, doc, c.sink)

	c.sink(protocol.RunStarted{
		Type:     protocol.EventRunStarted,
		ThreadID: c.threadID,
		RunID:    c.runID,
	})
	c.emitter.Snapshot()
}

func (c *Controller) finish() {
	c.sink(protocol.RunFinished{
		Type:     protocol.EventRunFinished,
		ThreadID: c.threadID,
		RunID:    c.runID,
	})
}

func (c *Controller) invoke(ctx context.Context, kind tasks.Kind, t tasks.Task, in tasks.Inputs) (string, error) {
	ctx, span := trace.Tracer().Start(ctx, "run.task."+string(kind))
	defer span.End()

	out, err := t.Run(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &SubTaskError{Kind: kind, Err: err}
	}
	return out, nil
}

// fail records the error into the state, emits the error phase delta and
// propagates. The stream ends without RUN_FINISHED on this path; callers must
// treat termination without RUN_FINISHED as a failed run.
func (c *Controller) fail(span oteltrace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	slog.Error("run: aborting", "thread_id", c.threadID, "run_id", c.runID, "error", err)

	c.emitter.StateDelta(
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/phase", Value: statedoc.PhaseError},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/status/error", Value: err.Error()},
		statedoc.Patch{Op: statedoc.OpReplace, Path: "/processing/inProgress", Value: false},
	)
	return err
}

// settle pauses after a state change long enough for a polling observer to
// render it. A pause is a suspension point, not a correctness requirement.
func (c *Controller) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// restaurantsFromState decodes /search/restaurants back into typed records.
func restaurantsFromState(doc *statedoc.Document) []extract.Restaurant {
	v, ok := doc.Get("/search/restaurants")
	if !ok {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []extract.Restaurant
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
