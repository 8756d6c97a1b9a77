package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	bravesearch "github.com/cnosuke/go-brave-search"

	"tavolo/internal/llm"
)

const searchSystemPrompt = `You are a Restaurant Research Specialist. Given a
location, produce a detailed list of the top restaurants there. Format every
restaurant as a markdown block with these exact field lines:
**Restaurant Name**: <name>
**Cuisine**: <cuisine>
**Price Range**: <range>
**Ratings**: <rating>
**Signature Dishes**: <dishes>`

const recommendSystemPrompt = `You are a Restaurant Recommendation Specialist.
Turn raw restaurant research into warm, personalized recommendations for the
given location. Keep every restaurant grounded in that location.`

const feedbackSystemPrompt = `You are a Restaurant Recommendation Specialist
responding to user feedback on your earlier recommendations. Stay grounded in
the original location and the original restaurant list.`

// SearchTask researches restaurants for a location. When a Brave client is
// configured, live web results are folded into the prompt so the model works
// from real listings rather than memory alone.
type SearchTask struct {
	provider llm.Provider
	brave    *bravesearch.Client
}

func NewSearchTask(provider llm.Provider) *SearchTask {
	return &SearchTask{provider: provider}
}

// WithBrave enables web grounding for the search task.
func (t *SearchTask) WithBrave(apiKey string) *SearchTask {
	client, err := bravesearch.NewClient(apiKey)
	if err != nil {
		slog.Warn("tasks: brave client unavailable", "error", err)
		return t
	}
	t.brave = client
	return t
}

func (t *SearchTask) Run(ctx context.Context, in Inputs) (string, error) {
	prompt := fmt.Sprintf("Find the top restaurants in %s.", in.Location)
	if grounding := t.webGrounding(ctx, in.Location); grounding != "" {
		prompt += "\n\nWeb search results to draw from:\n" + grounding
	}
	return t.provider.Complete(ctx, searchSystemPrompt, prompt)
}

func (t *SearchTask) webGrounding(ctx context.Context, location string) string {
	if t.brave == nil {
		return ""
	}
	resp, err := t.brave.WebSearch(ctx, "best restaurants in "+location, &bravesearch.WebSearchParams{
		Count: 5,
	})
	if err != nil {
		slog.Warn("tasks: brave search failed, continuing without grounding", "error", err)
		return ""
	}
	results := resp.GetWebResults()
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n%s", r.Title, r.URL, r.Description)
	}
	slog.Debug("tasks: search grounded", "location", location, "results", len(results))
	return b.String()
}

// RecommendTask turns raw search output into presentable recommendations.
type RecommendTask struct {
	provider llm.Provider
}

func NewRecommendTask(provider llm.Provider) *RecommendTask {
	return &RecommendTask{provider: provider}
}

func (t *RecommendTask) Run(ctx context.Context, in Inputs) (string, error) {
	prompt := fmt.Sprintf("Location: %s\n\nRestaurant research:\n%s\n\nWrite the recommendations.",
		in.Location, in.RestaurantData)
	return t.provider.Complete(ctx, recommendSystemPrompt, prompt)
}

// FeedbackTask responds to user feedback against the previous recommendations.
type FeedbackTask struct {
	provider llm.Provider
}

func NewFeedbackTask(provider llm.Provider) *FeedbackTask {
	return &FeedbackTask{provider: provider}
}

func (t *FeedbackTask) Run(ctx context.Context, in Inputs) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n\nUser feedback: %s\n\nPrevious recommendations:\n%s\n",
		in.Location, in.Feedback, in.PreviousRecommendations)
	if satisfied(in.Feedback) {
		fmt.Fprintf(&b, `
IMPORTANT INSTRUCTION: The user is satisfied with the original recommendations
for %s. Preserve the EXACT same restaurants from the original list with the
same formatting. Do not replace them with restaurants from other cities.
Add a friendly closing message and then include the ORIGINAL list.
`, in.Location)
	}
	return t.provider.Complete(ctx, feedbackSystemPrompt, b.String())
}

func satisfied(feedback string) bool {
	lower := strings.ToLower(feedback)
	for _, kw := range []string{"thank", "good", "perfect", "great"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DefaultRegistry wires the three specialists against one provider.
func DefaultRegistry(provider llm.Provider, braveAPIKey string) *Registry {
	search := NewSearchTask(provider)
	if braveAPIKey != "" {
		search = search.WithBrave(braveAPIKey)
	}
	r := NewRegistry()
	r.Register(KindSearch, search)
	r.Register(KindRecommend, NewRecommendTask(provider))
	r.Register(KindFeedback, NewFeedbackTask(provider))
	return r
}
