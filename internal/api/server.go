// Package api serves the aircraft registry over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/db"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Registry is the read side of the aircraft registry
type Registry interface {
	ListAircraft(ctx context.Context) ([]types.Aircraft, error)
	ListAircraftSince(ctx context.Context, since time.Time, limit int) ([]types.Aircraft, error)
	GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error)
}

// SummaryHistory lists persisted registry summaries
type SummaryHistory interface {
	GetSummaries(ctx context.Context, start, end time.Time) ([]db.SummaryRecord, error)
}

// AircraftCache answers single-aircraft lookups ahead of the registry.
// A nil result means the aircraft is not cached.
type AircraftCache interface {
	GetAircraft(ctx context.Context, icao string) (*types.Aircraft, error)
}

// Server is the registry HTTP API
type Server struct {
	router   *mux.Router
	registry Registry
	history  SummaryHistory
	cache    AircraftCache
	log      zerolog.Logger
	now      func() time.Time
}

// WithHistory enables /api/stats/history
func WithHistory(h SummaryHistory) func(*Server) {
	return func(s *Server) {
		s.history = h
	}
}

// WithCache serves /api/aircraft/{icao} from c when it has the aircraft
func WithCache(c AircraftCache) func(*Server) {
	return func(s *Server) {
		s.cache = c
	}
}

// NewServer creates the API server over registry
func NewServer(registry Registry, options ...func(*Server)) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		log:      logger.WithComponent("api"),
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware, corsMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/aircraft", s.handleListAircraft).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/aircraft/{icao}", s.handleGetAircraft).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet, http.MethodOptions)
	if s.history != nil {
		api.HandleFunc("/stats/history", s.handleStatsHistory).Methods(http.MethodGet, http.MethodOptions)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")
		w.Header().Set("Access-Control-Expose-Headers", TruncatedHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
