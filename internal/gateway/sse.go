package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tavolo/internal/protocol"
)

// SSEWriter frames protocol events for a long-lived event-stream response.
// Each event is one self-describing JSON object on a data line.
type SSEWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &SSEWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (s *SSEWriter) Send(ev protocol.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "data: %s\n\n", b)
	return s.rc.Flush()
}
