// Package api provides the HTTP REST API for the course chatbot.
//
// Endpoints:
//
//	POST   /api/query          →  answer a question (optionally in a session)
//	GET    /api/courses        →  course catalog analytics
//	POST   /api/sessions       →  create a conversation session
//	DELETE /api/sessions/{id}  →  clear a conversation session
//	GET    /health             →  liveness probe
//	GET    /ready              →  readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - query.go: question answering endpoint
//   - courses.go: catalog analytics endpoint
//   - session.go: session management endpoints
//   - health.go: health check endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/rag"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// Prevents Slowloris-style connection exhaustion.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Answer generation can take a while, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// RAG is the orchestration surface the API exposes.
// Satisfied by *rag.System.
type RAG interface {
	Query(ctx context.Context, question, sessionID string) (*rag.Answer, error)
	CourseAnalytics(ctx context.Context) (*rag.Analytics, error)
	CreateSession() string
	ClearSession(sessionID string)
}

// Server is the HTTP server for the chatbot REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	query   *QueryHandler
	courses *CoursesHandler
	session *SessionHandler
	health  *HealthHandler
}

// NewServer creates an HTTP server with all routes registered.
// pool may be nil; the readiness probe then reports unavailable.
func NewServer(system RAG, pool *pgxpool.Pool, logger log.Logger) (*Server, error) {
	if system == nil {
		return nil, errors.New("rag system is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		logger:  logger,
		query:   NewQueryHandler(system, logger),
		courses: NewCoursesHandler(system, logger),
		session: NewSessionHandler(system, logger),
		health:  NewHealthHandler(pool, logger),
	}

	s.query.RegisterRoutes(mux)
	s.courses.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.health.RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery, then logging, then CORS, then the handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware())
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
