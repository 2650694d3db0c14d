// Package server exposes an Explorer over HTTP with a JSON API.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/session"
)

const (
	contentTypeJSON = "application/json"

	sessionsPath        = "/api/sessions"
	sessionPath         = sessionsPath + "/{id}"
	filtersPath         = sessionPath + "/filters"
	resultsPath         = sessionPath + "/results"
	statsPath           = sessionPath + "/stats"
	mapPath             = sessionPath + "/map"
	recordPath          = sessionPath + "/records/{recordID}"
	sectorSuggestPath   = "/api/suggestions/sectors"
	locationSuggestPath = "/api/suggestions/locations"
	importPath          = "/api/import"
	datasetPath         = "/api/dataset"
	healthPath          = "/healthz"
	metricsPath         = "/metrics"
)

// DefaultMaxImportBytes caps the body of an import request.
const DefaultMaxImportBytes = 64 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Gatherer serves /metrics when set.
	Gatherer       prometheus.Gatherer
	MaxImportBytes int64
	// SettleTimeout bounds how long a filter update waits for its results.
	SettleTimeout time.Duration
}

// Server routes API requests to an Explorer.
type Server struct {
	explorer *session.Explorer
	router   *mux.Router
	logger   *slog.Logger
	opts     Options
}

// New builds the router.
func New(e *session.Explorer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = DefaultMaxImportBytes
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = 30 * time.Second
	}

	s := &Server{
		explorer: e,
		router:   mux.NewRouter(),
		logger:   opts.Logger,
		opts:     opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)

	r.Path(sessionsPath).Methods(http.MethodPost).HandlerFunc(s.createSession)
	r.Path(sessionPath).Methods(http.MethodDelete).HandlerFunc(s.deleteSession)
	r.Path(filtersPath).Methods(http.MethodGet).HandlerFunc(s.withSession(s.getFilters))
	r.Path(filtersPath).Methods(http.MethodPut).HandlerFunc(s.withSession(s.putFilters))
	r.Path(resultsPath).Methods(http.MethodGet).HandlerFunc(s.withSession(s.results))
	r.Path(statsPath).Methods(http.MethodGet).HandlerFunc(s.withSession(s.stats))
	r.Path(mapPath).Methods(http.MethodGet).HandlerFunc(s.withSession(s.mapLayer))
	r.Path(recordPath).Methods(http.MethodGet).HandlerFunc(s.withSession(s.record))

	r.Path(sectorSuggestPath).Methods(http.MethodGet).HandlerFunc(s.sectorSuggestions)
	r.Path(locationSuggestPath).Methods(http.MethodGet).HandlerFunc(s.locationSuggestions)

	r.Path(importPath).Methods(http.MethodPost).HandlerFunc(s.importLocal)
	r.Path(datasetPath).Methods(http.MethodGet).HandlerFunc(s.dataset)
	r.Path(datasetPath).Methods(http.MethodPost).HandlerFunc(s.reload)

	r.Path(healthPath).HandlerFunc(s.health)
	if s.opts.Gatherer != nil {
		r.Path(metricsPath).Handler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSONError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

// writeError maps domain errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "error", err)
	}
	s.writeJSONError(w, code, err.Error())
}

func statusFor(err error) int {
	var (
		parseErr *accords.ParseError
		loadErr  *accords.LoadError
	)
	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.Is(err, page.ErrPageOutOfRange):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNotLoaded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
