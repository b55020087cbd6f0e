// Package api serves the travel planning pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/bridge"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/conversation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// TaskRunner runs one background request at a time.
type TaskRunner interface {
	Submit(ctx context.Context, req bridge.Request) (string, error)
	Poll() bridge.PollResult
}

// Server provides the HTTP endpoints.
type Server struct {
	router   chi.Router
	planner  bridge.Processor
	tasks    TaskRunner
	sink     *events.Sink
	metrics  *service.Metrics
	recorder *conversation.Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *service.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRecorder persists conversation turns for requests carrying a
// conversation id.
func WithRecorder(r *conversation.Recorder) ServerOption {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithRequestTimeout bounds synchronous requests. Zero disables the bound.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer creates a new API server.
func NewServer(planner bridge.Processor, tasks TaskRunner, sink *events.Sink, opts ...ServerOption) *Server {
	s := &Server{
		planner: planner,
		tasks:   tasks,
		sink:    sink,
		logger:  slog.Default(),
		timeout: 10 * time.Minute,
	}
	if s.sink == nil {
		s.sink = events.NewSink()
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plan", s.handlePlan)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleSubmitTask)
			r.Get("/current", s.handlePollTask)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Delete("/", s.handleClearEvents)
			r.Get("/summary", s.handleEventSummary)
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
