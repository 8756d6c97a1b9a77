package statedoc

import "time"

// Phase names of the run state machine. A resumed feedback run enters
// directly at PhaseProcessingFeedback.
const (
	PhaseInitialized        = "initialized"
	PhaseSearching          = "searching_restaurants"
	PhaseRestaurantsFound   = "restaurants_found"
	PhasePresenting         = "presenting_recommendations"
	PhaseAwaitFeedback      = "await_feedback"
	PhaseProcessingFeedback = "processing_feedback"
	PhaseFeedbackCompleted  = "feedback_completed"
	PhaseError              = "error"
)

// DefaultFeedbackOptions are the suggested replies surfaced by the
// provideFeedback tool call and the initial ui section.
var DefaultFeedbackOptions = []string{
	"Thanks, these look great!",
	"Can you show me more options?",
	"Do you have any cheaper restaurants?",
	"I'd like more fine dining options",
}

// NewRunState seeds a fresh RunState document bound to a location query.
func NewRunState(query string) *Document {
	options := make([]any, len(DefaultFeedbackOptions))
	for i, o := range DefaultFeedbackOptions {
		options[i] = o
	}
	return New(map[string]any{
		"status": map[string]any{
			"phase":     PhaseInitialized,
			"error":     nil,
			"timestamp": time.Now().Format(time.RFC3339),
		},
		"search": map[string]any{
			"query":             query,
			"location":          query,
			"stage":             "not_started",
			"restaurants_found": 0,
			"restaurants":       []any{},
			"completed":         false,
		},
		"processing": map[string]any{
			"progress":        0.0,
			"recommendations": nil,
			"completed":       false,
			"inProgress":      false,
			"feedback":        nil,
			"currentPhase":    "",
			"phases":          []any{"search", "recommend", "feedback"},
		},
		"ui": map[string]any{
			"showRestaurants":    false,
			"showProgress":       true,
			"activeTab":          "chat",
			"showFeedbackPrompt": false,
			"feedbackOptions":    options,
		},
	})
}

// RestoreRunState seeds a RunState for a resumed feedback run, carrying over
// the location, prior recommendations and restaurant list from a caller-held
// snapshot of the previous run.
func RestoreRunState(prior map[string]any) *Document {
	doc := NewRunState("")
	if prior == nil {
		return doc
	}
	if search, ok := prior["search"].(map[string]any); ok {
		if loc, ok := search["location"].(string); ok && loc != "" {
			doc.Apply([]Patch{
				{Op: OpReplace, Path: "/search/location", Value: loc},
				{Op: OpReplace, Path: "/search/query", Value: loc},
			})
		}
		if restaurants, ok := search["restaurants"].([]any); ok && len(restaurants) > 0 {
			doc.Apply([]Patch{
				{Op: OpReplace, Path: "/search/restaurants", Value: restaurants},
				{Op: OpReplace, Path: "/search/restaurants_found", Value: len(restaurants)},
			})
		}
	}
	if processing, ok := prior["processing"].(map[string]any); ok {
		if rec, ok := processing["recommendations"]; ok && rec != nil {
			doc.Apply([]Patch{
				{Op: OpReplace, Path: "/processing/recommendations", Value: rec},
			})
		}
	}
	return doc
}
