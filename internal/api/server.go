// Package api exposes the engine over HTTP: CRUD over stored backtest runs
// (backed by internal/repository) and a websocket stream for a running
// optimizer's progress callback.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/repository"
)

// ServerConfig holds the HTTP server's own settings, independent of the
// engine components it exposes.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the read/write HTTP surface over a Repository.
type Server struct {
	router      *mux.Router
	server      *http.Server
	repo        repository.Repository
	metrics     *metrics.Registry
	broadcaster *ProgressBroadcaster
	logger      zerolog.Logger
	config      ServerConfig

	// runCtx is cancelled on Shutdown; background optimize runs started by
	// handleStartOptimize are bound to it so they honor the optimizer's own
	// cancellation token instead of running unbounded past server shutdown.
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewServer builds a Server wired to repo and, if non-nil, a metrics
// registry exposed at /metrics. The returned Server's ProgressBroadcaster is
// reachable via Broadcaster() so a CLI command can feed an optimizer's
// ProgressFunc into the /ws/optimize stream.
func NewServer(config ServerConfig, repo repository.Repository, registry *metrics.Registry, logger zerolog.Logger) *Server {
	router := mux.NewRouter()
	runCtx, cancelRun := context.WithCancel(context.Background())

	s := &Server{
		router:      router,
		repo:        repo,
		metrics:     registry,
		broadcaster: NewProgressBroadcaster(),
		logger:      logger,
		config:      config,
		runCtx:      runCtx,
		cancelRun:   cancelRun,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs", s.handleSaveRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", s.handleLoadRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods(http.MethodDelete)
	api.HandleFunc("/optimize", s.handleStartOptimize).Methods(http.MethodPost)

	s.router.HandleFunc("/ws/optimize", s.handleOptimizeProgress)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server within the configured timeout
// and cancels any background optimize run started via POST /optimize.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRun()
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Addr returns the server's configured listen address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Broadcaster returns the server's optimize-progress broadcaster.
func (s *Server) Broadcaster() *ProgressBroadcaster {
	return s.broadcaster
}
