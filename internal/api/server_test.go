package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macave/vivino-gateway/internal/cache"
	"github.com/macave/vivino-gateway/internal/clock/system"
	"github.com/macave/vivino-gateway/internal/strategy"
	"github.com/macave/vivino-gateway/internal/wine"
)

type stubStrategy struct {
	name    string
	records []wine.Record
	err     error
	calls   int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(context.Context, strategy.Query) ([]wine.Record, error) {
	s.calls++
	return s.records, s.err
}

func newTestServer(strategies ...strategy.Strategy) (*Server, *cache.Store) {
	store := cache.New(cache.Config{TTL: time.Hour, Capacity: 10}, system.New())
	chain := strategy.NewChain(strategies, time.Second, zap.NewNop())
	return NewServer(store, chain, zap.NewNop()), store
}

func TestServer_Search_BlankQuery(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(&stubStrategy{name: "stub"})
	req := httptest.NewRequest(http.MethodGet, "/search?q=%20%20", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "blank")
}

func TestServer_Search_SuccessThenCached(t *testing.T) {
	t.Parallel()

	winner := &stubStrategy{name: "direct-api", records: []wine.Record{{Name: "Château Margaux", Region: "Bordeaux"}}}
	server, _ := newTestServer(winner)

	req := httptest.NewRequest(http.MethodGet, "/search?q=margaux", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var first wine.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, 1, first.Count)
	require.Equal(t, "direct-api", first.Source)
	require.False(t, first.Cached)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=MARGAUX", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var second wine.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.True(t, second.Cached)
	require.Equal(t, first.Results, second.Results, "cached call must return identical results")
	require.Equal(t, 1, winner.calls, "cache hit must short-circuit the chain")
}

func TestServer_Search_AllFailed(t *testing.T) {
	t.Parallel()

	failing := &stubStrategy{name: "direct-api", err: errors.New("status 403")}
	alsoFailing := &stubStrategy{name: "html-scrape", err: errors.New("timeout")}
	server, store := newTestServer(failing, alsoFailing)

	req := httptest.NewRequest(http.MethodGet, "/search?q=margaux", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var result wine.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Empty(t, result.Results)
	require.Len(t, result.Details, 2, "one diagnostic per attempted strategy")
	require.Zero(t, store.Len(), "failures must not be cached")
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	server, store := newTestServer(&stubStrategy{name: "stub"})
	store.Put("margaux", wine.SearchResult{Query: "margaux"})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(1), body["cache_size"])
}

func TestServer_Debug_RunsAllStrategies(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "first", records: []wine.Record{{Name: "Pommard"}}}
	second := &stubStrategy{name: "second", err: errors.New("boom")}
	server, _ := newTestServer(first, second)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug?q=pommard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls, "debug must not short-circuit")

	var body struct {
		Query      string                `json:"query"`
		Strategies []strategy.TraceEntry `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Strategies, 2)
	require.True(t, body.Strategies[0].OK)
	require.Equal(t, "Pommard", body.Strategies[0].Sample)
	require.Contains(t, body.Strategies[1].Error, "boom")
}

func TestServer_Index(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(&stubStrategy{name: "stub"})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/search")
}

func TestServer_CORSHeaders(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(&stubStrategy{name: "stub"})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/search", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(&stubStrategy{name: "stub"})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
