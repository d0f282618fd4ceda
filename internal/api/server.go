// Package api exposes the HTTP interface for the gateway service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/macave/vivino-gateway/internal/cache"
	"github.com/macave/vivino-gateway/internal/metrics"
	"github.com/macave/vivino-gateway/internal/strategy"
	"github.com/macave/vivino-gateway/internal/wine"
)

// Server wires HTTP handlers to the cache and strategy chain.
type Server struct {
	router chi.Router
	cache  *cache.Store
	chain  *strategy.Chain
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store *cache.Store, chain *strategy.Chain, logger *zap.Logger) *Server {
	s := &Server{
		cache:  store,
		chain:  chain,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)
	r.Use(timeoutMiddleware(90 * time.Second))

	r.Get("/", s.index)
	r.Get("/search", s.search)
	r.Get("/health", s.health)
	r.Get("/debug", s.debug)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "Ma Cave — Vivino Gateway",
		"endpoints": map[string]string{
			"GET /search?q=...": "Recherche de vins",
			"GET /health":       "Status du serveur",
			"GET /debug?q=...":  "Trace par stratégie",
		},
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		metrics.ObserveSearch("invalid", "")
		s.writeError(w, http.StatusBadRequest, wine.ErrEmptyQuery.Error())
		return
	}

	if payload, ok := s.cache.Get(query); ok {
		payload.Cached = true
		metrics.ObserveSearch("cached", payload.Source)
		s.writeJSON(w, http.StatusOK, payload)
		return
	}

	q := strategy.Query{Text: query, Country: r.URL.Query().Get("country")}
	outcome := s.chain.Run(r.Context(), q)
	if len(outcome.Records) == 0 {
		metrics.ObserveSearch("failed", "")
		s.writeJSON(w, http.StatusServiceUnavailable, wine.SearchResult{
			Query:   query,
			Results: []wine.Record{},
			Error:   "all acquisition strategies failed",
			Details: outcome.Failures,
		})
		return
	}

	result := wine.SearchResult{
		Query:   query,
		Results: outcome.Records,
		Count:   len(outcome.Records),
		Source:  outcome.Source,
	}
	s.cache.Put(query, result)
	metrics.ObserveSearch("success", outcome.Source)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"cache_size": s.cache.Len(),
	})
}

func (s *Server) debug(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, wine.ErrEmptyQuery.Error())
		return
	}
	q := strategy.Query{Text: query, Country: r.URL.Query().Get("country")}
	entries := s.chain.Trace(r.Context(), q)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":      query,
		"strategies": entries,
	})
}

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
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		metrics.ObserveHTTPRequest(r.Method, ww.status)
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

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
