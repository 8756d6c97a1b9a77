// Package guard verifies that freshly generated recommendation text stays
// grounded in the location the run is bound to. The recommendation generator
// is not guaranteed to keep talking about the same city across invocations;
// this check is the only safeguard against silently presenting restaurants
// from the wrong one.
package guard

import (
	"fmt"
	"log/slog"
	"strings"

	"tavolo/internal/recommend"
)

// satisfactionKeywords is a crude substring heuristic for "the user liked the
// recommendations". Known weakness: it fires on phrases like "this doesn't
// look great"; kept as is for compatibility with existing clients.
var satisfactionKeywords = []string{"thank", "good", "perfect", "great", "look"}

// referenceCities are major city names checked for stray mentions.
var referenceCities = []string{
	"new york", "copenhagen", "paris", "tokyo", "london", "rome", "bangkok",
	"los angeles", "milan", "san francisco", "berlin", "madrid", "sydney",
	"dubai", "chicago", "mumbai", "seoul", "nairobi", "amsterdam", "barcelona",
	"austin", "seattle", "las vegas", "miami", "boston", "portland",
	"vancouver", "atlanta",
}

// Satisfied reports whether the feedback text signals satisfaction with the
// current recommendations.
func Satisfied(feedback string) bool {
	lower := strings.ToLower(feedback)
	for _, kw := range satisfactionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Check validates candidate text against the bound location and returns the
// text to present. On a detected location mismatch, or whenever lastGood is
// usable, it substitutes a message built from lastGood instead of trusting
// the candidate.
func Check(candidate, boundLocation, lastGood string) string {
	city := PrimaryCity(boundLocation)
	lower := strings.ToLower(candidate)

	mismatched := false
	if len(city) > 2 {
		for _, ref := range referenceCities {
			if strings.Contains(lower, ref) && !strings.Contains(city, ref) {
				slog.Warn("guard: foreign city mentioned", "city", ref, "bound", city)
				mismatched = true
			}
		}
		for _, ref := range referenceCities {
			for _, prep := range []string{"in ", "from "} {
				phrase := prep + ref
				if strings.Contains(lower, phrase) && !strings.Contains(city, lastToken(phrase)) {
					slog.Warn("guard: explicit location phrase", "phrase", phrase, "bound", city)
					mismatched = true
				}
			}
		}
		if !strings.Contains(lower, city) {
			slog.Warn("guard: bound city never mentioned", "bound", city)
			mismatched = true
		}
	}

	switch {
	case mismatched && recommend.Usable(lastGood):
		return fmt.Sprintf("I'm so glad you liked my recommendations for %s! Here they are again:\n\n%s",
			boundLocation, lastGood)
	case recommend.Usable(lastGood):
		return fmt.Sprintf("Thank you for your feedback! I'm glad you liked the recommendations for %s. Here they are again:\n\n%s",
			boundLocation, lastGood)
	default:
		return candidate
	}
}

// PrimaryCity extracts the lower-cased city token from a location string:
// the portion before the first comma, trimmed.
func PrimaryCity(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(strings.ToLower(city))
}

func lastToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
