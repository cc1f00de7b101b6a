// Package api exposes the HTTP trigger and audit interface for the crawl
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confatlas/confcrawler/internal/metrics"
	"github.com/confatlas/confcrawler/internal/model"
	"github.com/confatlas/confcrawler/internal/service"
	"github.com/confatlas/confcrawler/internal/store"
)

const defaultLogLimit = 50

// Orchestrator is the crawl surface the server exposes over HTTP. Crawls run
// synchronously: the handler blocks for the duration of one crawl.
type Orchestrator interface {
	CrawlByURL(ctx context.Context, rawURL string, opts service.Options) service.Outcome
	CrawlByID(ctx context.Context, id string, opts service.Options) service.Outcome
}

// Server wires HTTP handlers to the orchestrator and the audit log.
type Server struct {
	router       chi.Router
	orchestrator Orchestrator
	logs         store.CrawlLogStore
	logger       *zap.Logger
	timeout      time.Duration
}

// NewServer constructs a Server with middleware and routes. The request
// timeout should exceed the crawl fetch timeout since crawls run inline.
func NewServer(orchestrator Orchestrator, logs store.CrawlLogStore, timeout time.Duration, logger *zap.Logger) *Server {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	s := &Server{
		orchestrator: orchestrator,
		logs:         logs,
		logger:       logger,
		timeout:      timeout,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(s.timeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.triggerCrawl)
		r.Get("/crawl-logs", s.listCrawlLogs)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type crawlRequest struct {
	URL          string          `json:"url"`
	ConferenceID string          `json:"conference_id"`
	Options      service.Options `json:"options"`
}

func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" && req.ConferenceID == "" {
		s.writeError(w, http.StatusBadRequest, "url or conference_id is required")
		return
	}
	if req.URL != "" && req.ConferenceID != "" {
		s.writeError(w, http.StatusBadRequest, "url and conference_id are mutually exclusive")
		return
	}

	var out service.Outcome
	if req.URL != "" {
		out = s.orchestrator.CrawlByURL(r.Context(), req.URL, req.Options)
	} else {
		out = s.orchestrator.CrawlByID(r.Context(), req.ConferenceID, req.Options)
	}

	status := http.StatusOK
	if !out.Success {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, out)
}

func (s *Server) listCrawlLogs(w http.ResponseWriter, r *http.Request) {
	status := model.CrawlStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.CrawlStatusSuccess, model.CrawlStatusPartial, model.CrawlStatusFailed:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.logs.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.logger.Error("list crawl logs failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list crawl logs")
		return
	}
	if entries == nil {
		entries = []model.CrawlLogEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
