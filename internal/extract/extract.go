// Package extract pulls structured restaurant records out of the free-text
// output of the search sub-task. Extraction is best effort: Restaurants never
// fails and never returns an empty list.
package extract

import (
	"fmt"
	"strings"
)

// Restaurant is one extracted record. A record is kept only if it has a name.
type Restaurant struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Cuisine         string `json:"cuisine,omitempty"`
	PriceRange      string `json:"priceRange,omitempty"`
	Rating          string `json:"rating,omitempty"`
	SignatureDishes string `json:"signatureDishes,omitempty"`
}

// Fallback is the single placeholder record returned when nothing parses.
func Fallback() Restaurant {
	return Restaurant{
		ID:         "rest_fallback",
		Name:       "See detailed recommendations below",
		Cuisine:    "Various",
		PriceRange: "Various",
		Rating:     "Various",
	}
}

// Restaurants scans markdown-style "**Restaurant Name**: X" blocks with
// "**Cuisine**", "**Price Range**", "**Ratings**" and "**Signature Dishes**"
// lines. Unrecognized lines are ignored.
func Restaurants(raw string) []Restaurant {
	var out []Restaurant
	var cur *Restaurant

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.Contains(line, "**Restaurant") && strings.Contains(line, "Name"):
			if cur != nil && cur.Name != "" {
				out = append(out, *cur)
			}
			cur = &Restaurant{ID: fmt.Sprintf("rest_%d", len(out))}
			cur.Name = fieldValue(line, "**Restaurant Name**:")
		case strings.Contains(line, "**Cuisine**:"):
			if cur != nil {
				cur.Cuisine = fieldValue(line, "**Cuisine**:")
			}
		case strings.Contains(line, "**Price Range**:"):
			if cur != nil {
				cur.PriceRange = fieldValue(line, "**Price Range**:")
			}
		case strings.Contains(line, "**Ratings**:"):
			if cur != nil {
				cur.Rating = fieldValue(line, "**Ratings**:")
			}
		case strings.Contains(line, "**Signature Dishes**:"):
			if cur != nil {
				cur.SignatureDishes = fieldValue(line, "**Signature Dishes**:")
			}
		}
	}
	if cur != nil && cur.Name != "" {
		out = append(out, *cur)
	}

	if len(out) == 0 {
		return []Restaurant{Fallback()}
	}
	return out
}

// fieldValue returns the text after marker, falling back to the text after
// the first colon when the marker is absent from the line.
func fieldValue(line, marker string) string {
	if _, after, ok := strings.Cut(line, marker); ok {
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
