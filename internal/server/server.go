package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
	"github.com/hazz-dev/depprobe/internal/version"
)

// Source runs the registered checks. *health.Registry satisfies it.
type Source interface {
	RunAll(ctx context.Context) health.Report
	RunOne(ctx context.Context, name string) (health.Result, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	source Source
	types  map[string]string
	router chi.Router
	logger *slog.Logger

	metricsPath    string
	metricsHandler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = h
	}
}

// New creates a new Server and registers all routes. checks is used to report
// each check's type alongside its result.
func New(source Source, checks []config.Check, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	types := make(map[string]string, len(checks))
	for _, c := range checks {
		types[c.Name] = c.Type
	}
	s := &Server{
		source: source,
		types:  types,
		router: chi.NewRouter(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/checks", s.handleListChecks)
	r.Get("/api/checks/{name}", s.handleGetCheck)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)
	}
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// statusCode maps a status to the HTTP code of a report or single result.
func statusCode(s health.Status) int {
	if s == health.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// --- Views ---

// CheckView is the JSON form of one result.
type CheckView struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ReportView is the JSON form of a report.
type ReportView struct {
	Status      string      `json:"status"`
	GeneratedAt time.Time   `json:"generated_at"`
	Checks      []CheckView `json:"checks"`
}

func (s *Server) checkView(r health.Result) CheckView {
	return CheckView{
		Name:       r.Name,
		Type:       s.types[r.Name],
		Status:     string(r.Status),
		Message:    r.Message,
		Error:      r.Error(),
		DurationMs: r.Duration.Milliseconds(),
		CheckedAt:  r.CheckedAt,
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	report := s.source.RunAll(r.Context())

	view := ReportView{
		Status:      string(report.Status()),
		GeneratedAt: report.GeneratedAt,
		Checks:      make([]CheckView, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		view.Checks = append(view.Checks, s.checkView(res))
	}

	writeJSON(w, statusCode(report.Status()), view)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	res, err := s.source.RunOne(r.Context(), name)
	if err != nil {
		var unknown health.UnknownCheckError
		if errors.As(err, &unknown) {
			writeError(w, http.StatusNotFound, "check not found")
			return
		}
		s.logger.Error("RunOne", "check", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, statusCode(res.Status), s.checkView(res))
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
