package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tavolo/internal/protocol"
	"tavolo/internal/run"
	"tavolo/internal/runlog"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// agentRequest is the inbound run request. thread_state may be a JSON object
// or a string holding encoded JSON, depending on the client.
type agentRequest struct {
	ThreadID         string          `json:"thread_id"`
	RunID            string          `json:"run_id"`
	Messages         []message       `json:"messages"`
	Feedback         string          `json:"feedback,omitempty"`
	OriginalLocation string          `json:"original_location,omitempty"`
	ThreadState      json.RawMessage `json:"thread_state,omitempty"`
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 && req.Feedback == "" {
		http.Error(w, `{"error":"messages or feedback required"}`, http.StatusBadRequest)
		return
	}

	lastContent := ""
	if len(req.Messages) > 0 {
		lastContent = req.Messages[len(req.Messages)-1].Content
	}

	// A request is a feedback continuation when it carries an explicit
	// feedback field, or its last message body is a structured feedback
	// payload coming from the UI.
	feedback := req.Feedback
	if feedback == "" && run.IsFeedbackContent(lastContent) {
		feedback = lastContent
	}

	in := run.Input{
		ThreadID:         req.ThreadID,
		RunID:            req.RunID,
		Location:         lastContent,
		Feedback:         feedback,
		OriginalLocation: req.OriginalLocation,
		PriorState:       decodeThreadState(req.ThreadState),
	}

	sse := NewSSEWriter(w)
	recommendationsLen := 0
	ctrl := run.New(s.registry, func(ev protocol.Event) {
		if n, ok := recommendationsLength(ev); ok {
			recommendationsLen = n
		}
		if err := sse.Send(ev); err != nil {
			slog.Warn("gateway: dropping event, client write failed", "type", ev.Kind(), "error", err)
		}
	}, run.WithSettle(s.settlePhase, s.settleDelta))

	started := time.Now()
	kind := "initial"
	var err error
	if feedback != "" {
		kind = "feedback"
		err = ctrl.RunFeedback(r.Context(), in)
	} else {
		err = ctrl.Run(r.Context(), in)
	}
	if err != nil {
		// The error phase delta is already on the stream; terminating without
		// RUN_FINISHED tells the client the run failed.
		slog.Error("gateway: run failed", "thread_id", req.ThreadID, "run_id", req.RunID, "error", err)
	}

	s.record(r, in, kind, started, recommendationsLen, err)
}

// recommendationsLength extracts the length of the recommendations text when
// an event carries it, for the run log.
func recommendationsLength(ev protocol.Event) (int, bool) {
	delta, ok := ev.(protocol.StateDelta)
	if !ok {
		return 0, false
	}
	for _, p := range delta.Delta {
		if p.Path != "/processing/recommendations" {
			continue
		}
		if s, ok := p.Value.(string); ok {
			return len(s), true
		}
	}
	return 0, false
}

func (s *Server) record(r *http.Request, in run.Input, kind string, started time.Time, recommendationsLen int, runErr error) {
	if s.log == nil {
		return
	}
	rec := runlog.Record{
		ThreadID:           in.ThreadID,
		RunID:              in.RunID,
		Kind:               kind,
		Location:           in.Location,
		FinalPhase:         "feedback_completed",
		RecommendationsLen: recommendationsLen,
		StartedAt:          started,
		FinishedAt:         time.Now(),
	}
	if kind == "initial" {
		rec.FinalPhase = "await_feedback"
	}
	if runErr != nil {
		rec.FinalPhase = "error"
		rec.Error = runErr.Error()
	}
	if err := s.log.Append(r.Context(), rec); err != nil {
		slog.Warn("gateway: run log append failed", "error", err)
	}
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		http.Error(w, `{"error":"run log not enabled"}`, http.StatusNotFound)
		return
	}
	recent, err := s.log.Recent(r.Context(), 50)
	if err != nil {
		http.Error(w, `{"error":"run log unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeThreadState accepts either a JSON object or a string of encoded JSON.
func decodeThreadState(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("gateway: unusable thread_state, ignoring")
		return nil
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		slog.Warn("gateway: thread_state string is not JSON, ignoring")
		return nil
	}
	return obj
}
