package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var parisGood = strings.Repeat("Wonderful bistros in Paris near the Seine. ", 4)

func TestSatisfied(t *testing.T) {
	assert.True(t, Satisfied("Thanks, these look great!"))
	assert.True(t, Satisfied("perfect"))
	assert.True(t, Satisfied("GOOD choices"))
	assert.False(t, Satisfied("can you show me cheaper options?"))
}

func TestCheckForeignCitySubstitutesLastGood(t *testing.T) {
	candidate := "I love these! Here are some great spots in New York you might enjoy."
	got := Check(candidate, "Paris, France", parisGood)

	assert.Contains(t, got, parisGood)
	assert.Contains(t, got, "I'm so glad you liked my recommendations for Paris, France!")
	assert.NotContains(t, got, "New York")
}

func TestCheckBoundCityAbsentSubstitutesLastGood(t *testing.T) {
	candidate := strings.Repeat("Great dining options with lovely ambiance and food. ", 4)
	got := Check(candidate, "Rome, Italy", parisGoodFor("Rome"))

	assert.Contains(t, got, "rome")
	assert.Contains(t, got, "I'm so glad you liked my recommendations for Rome, Italy!")
}

func TestCheckMatchingLocationKeepsConfirmedText(t *testing.T) {
	candidate := "So glad you liked them! The Paris spots I listed are still my top picks for Paris."
	got := Check(candidate, "Paris, France", parisGood)

	// No mismatch, but a usable last-known-good text still wins, with a
	// thank-you prefix rather than a correction.
	assert.Contains(t, got, "Thank you for your feedback!")
	assert.Contains(t, got, parisGood)
}

func TestCheckNoLastGoodReturnsCandidate(t *testing.T) {
	candidate := "Here are a few more spots in Paris you might like."
	got := Check(candidate, "Paris, France", "")
	assert.Equal(t, candidate, got)
}

func TestCheckShortCityTokenSkipsValidation(t *testing.T) {
	// A 2-character city token is too weak a signal to validate against.
	candidate := "Plenty of great places to eat around here."
	got := Check(candidate, "Ur", "")
	assert.Equal(t, candidate, got)
}

func TestPrimaryCity(t *testing.T) {
	assert.Equal(t, "paris", PrimaryCity("Paris, France"))
	assert.Equal(t, "new york", PrimaryCity("New York, NY, USA"))
	assert.Equal(t, "tokyo", PrimaryCity("Tokyo"))
	assert.Equal(t, "", PrimaryCity(""))
}

func parisGoodFor(city string) string {
	return strings.ReplaceAll(strings.ToLower(parisGood), "paris", strings.ToLower(city))
}
