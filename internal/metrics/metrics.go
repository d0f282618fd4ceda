// Package metrics exposes Prometheus collectors for the gateway service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal           *prometheus.CounterVec
	strategyAttemptsTotal   *prometheus.CounterVec
	strategyDurationSeconds *prometheus.HistogramVec
	cacheHitsTotal          prometheus.Counter
	cacheMissesTotal        prometheus.Counter
	cacheEvictionsTotal     prometheus.Counter
	httpRequestsTotal       *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_searches_total",
				Help: "Total number of searches, labeled by outcome and winning source.",
			},
			[]string{"outcome", "source"},
		)

		strategyAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_strategy_attempts_total",
				Help: "Total number of strategy attempts, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		)

		strategyDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_strategy_duration_seconds",
				Help:    "Histogram of per-strategy attempt latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 18},
			},
			[]string{"strategy"},
		)

		cacheHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_cache_hits_total",
				Help: "Total cache hits.",
			},
		)

		cacheMissesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_cache_misses_total",
				Help: "Total cache misses.",
			},
		)

		cacheEvictionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_cache_evictions_total",
				Help: "Total cache entries removed by the batch eviction pass.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearch increments the search counter for the given outcome.
func ObserveSearch(outcome, source string) {
	if searchesTotal == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	searchesTotal.WithLabelValues(outcome, source).Inc()
}

// ObserveStrategyAttempt records one strategy attempt and its latency.
func ObserveStrategyAttempt(strategy, outcome string, duration time.Duration) {
	if strategyAttemptsTotal == nil {
		return
	}
	strategyAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
	strategyDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveCacheHit increments the cache hit counter.
func ObserveCacheHit() {
	if cacheHitsTotal != nil {
		cacheHitsTotal.Inc()
	}
}

// ObserveCacheMiss increments the cache miss counter.
func ObserveCacheMiss() {
	if cacheMissesTotal != nil {
		cacheMissesTotal.Inc()
	}
}

// ObserveCacheEviction increments the eviction counter.
func ObserveCacheEviction() {
	if cacheEvictionsTotal != nil {
		cacheEvictionsTotal.Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request counter.
func ObserveHTTPRequest(method string, code int) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	}
}
