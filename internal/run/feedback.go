package run

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// FeedbackPayload is the structured form a client may send feedback in.
type FeedbackPayload struct {
	Text             string
	OriginalLocation string
}

// parseFeedback decodes a feedback payload. Clients send either plain text or
// a JSON object carrying feedbackText plus the original search location. A
// payload that is not parseable as structured data is recovered locally by
// treating the raw content as plain text; it never fails the run.
func parseFeedback(raw string) FeedbackPayload {
	payload := FeedbackPayload{Text: raw}

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return payload
	}

	var decoded struct {
		FeedbackText     string `json:"feedbackText"`
		Feedback         string `json:"feedback"`
		OriginalLocation string `json:"originalLocation"`
		AltLocation      string `json:"original_location"`
	}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		slog.Debug("run: feedback is not structured, using as plain text", "error", err)
		return payload
	}

	if decoded.FeedbackText != "" {
		payload.Text = decoded.FeedbackText
	} else if decoded.Feedback != "" {
		payload.Text = decoded.Feedback
	}
	if decoded.OriginalLocation != "" {
		payload.OriginalLocation = decoded.OriginalLocation
	} else if decoded.AltLocation != "" {
		payload.OriginalLocation = decoded.AltLocation
	}
	return payload
}

// IsFeedbackContent reports whether a message body is actually a structured
// feedback payload, which marks the request as a feedback continuation even
// without an explicit feedback field.
func IsFeedbackContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return false
	}
	_, hasText := decoded["feedbackText"]
	_, hasLocation := decoded["originalLocation"]
	return hasText || hasLocation
}
