package gateway

import (
	"context"
	"net/http"
	"time"

	"tavolo/internal/runlog"
	"tavolo/internal/tasks"
)

type ServerOption func(*Server)

// WithRunLog enables recording finished runs to the sqlite run log.
func WithRunLog(log *runlog.Log) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithSettle sets the settle pauses passed through to each run controller.
func WithSettle(phase, delta time.Duration) ServerOption {
	return func(s *Server) {
		s.settlePhase = phase
		s.settleDelta = delta
	}
}

type Server struct {
	registry    *tasks.Registry
	log         *runlog.Log
	settlePhase time.Duration
	settleDelta time.Duration
	mux         *http.ServeMux
}

func NewServer(registry *tasks.Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry:    registry,
		settlePhase: 1500 * time.Millisecond,
		settleDelta: 500 * time.Millisecond,
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /agent", s.handleAgent)
	s.mux.HandleFunc("GET /v1/runs", s.handleRecentRuns)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
