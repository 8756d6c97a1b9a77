// Package recommend resolves "what are the current recommendations" from
// several possibly-stale sources. A feedback request can arrive as a separate
// process invocation carrying only a serialized snapshot of prior state, so
// the in-memory source is not always available and the retriever must
// degrade instead of failing.
package recommend

import (
	"fmt"
	"log/slog"
	"strings"

	"tavolo/internal/extract"
)

// usableLength is the minimum length for a recommendation text to count as a
// real recommendation rather than a stub or error string.
const usableLength = 100

// Usable reports whether s is long enough to serve as recommendation text.
func Usable(s string) bool {
	return len(strings.TrimSpace(s)) > usableLength
}

// Resolve returns the previous recommendations for a run, trying sources in
// strict precedence order; the first usable one wins:
//
//  1. memo: the dedicated in-memory slot written when recommendations were
//     first produced (survives an in-process continuation only),
//  2. the processing.recommendations field of the possibly caller-resupplied
//     run state, when it is a string,
//  3. a best-effort string coercion of that field when it is not a string,
//  4. a bullet list synthesized from the stored restaurant records,
//  5. a generic five-item template naming the location.
func Resolve(memo string, stateRecommendations any, restaurants []extract.Restaurant, location string) string {
	if Usable(memo) {
		slog.Debug("recommend: resolved from dedicated slot", "length", len(memo))
		return memo
	}

	if s, ok := stateRecommendations.(string); ok && Usable(s) {
		slog.Debug("recommend: resolved from state document", "length", len(s))
		return s
	}

	if _, isString := stateRecommendations.(string); stateRecommendations != nil && !isString {
		coerced := fmt.Sprintf("%v", stateRecommendations)
		if Usable(coerced) {
			slog.Debug("recommend: resolved by coercion", "length", len(coerced))
			return coerced
		}
	}

	if len(restaurants) > 0 {
		if s := fromRestaurants(restaurants, location); Usable(s) {
			slog.Warn("recommend: falling back to restaurant list", "restaurants", len(restaurants))
			return s
		}
	}

	slog.Warn("recommend: using generic template", "location", location)
	return generic(location)
}

func fromRestaurants(restaurants []extract.Restaurant, location string) string {
	if location == "" {
		location = "your selected location"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendations for restaurants in %s:\n\n", location)
	for _, r := range restaurants {
		name := r.Name
		if name == "" {
			name = "Unknown Restaurant"
		}
		cuisine := r.Cuisine
		if cuisine == "" {
			cuisine = "Various"
		}
		priceRange := r.PriceRange
		if priceRange == "" {
			priceRange = "$-$$$"
		}
		rating := r.Rating
		if rating == "" {
			rating = "Not rated"
		}
		fmt.Fprintf(&b, "- **%s**: %s cuisine, %s, Rating: %s\n", name, cuisine, priceRange, rating)
	}
	return b.String()
}

func generic(location string) string {
	if location == "" {
		location = "your selected location"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are some general restaurant recommendations for %s:\n\n", location)
	fmt.Fprintf(&b, "1. **Top-rated restaurants in %s** - Various cuisines, $$-$$$\n\n", location)
	fmt.Fprintf(&b, "2. **Local favorites in %s** - Regional specialties, $$-$$$\n\n", location)
	fmt.Fprintf(&b, "3. **Fine dining experiences in %s** - Upscale cuisine, $$$-$$$$\n\n", location)
	fmt.Fprintf(&b, "4. **Hidden gems in %s** - Unique dining experiences, $$\n\n", location)
	fmt.Fprintf(&b, "5. **Family-friendly options in %s** - Casual dining, $-$$\n\n", location)
	return b.String()
}
