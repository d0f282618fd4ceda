// Package cache implements the time-bounded in-memory result store keyed
// by normalized query fingerprints.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/macave/vivino-gateway/internal/metrics"
	"github.com/macave/vivino-gateway/internal/wine"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Default knobs when the corresponding Config values are zero.
const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 400
)

// Config controls store freshness and size bounds.
type Config struct {
	TTL      time.Duration
	Capacity int
}

// Store owns the entry map exclusively. Entries are immutable after
// creation; they age out via TTL or batch eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	cfg     Config
	clock   Clock
}

type entry struct {
	at      time.Time
	payload wine.SearchResult
}

// New builds a Store, filling in defaults for zero config values.
func New(cfg Config, clock Clock) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Store{
		entries: make(map[string]entry),
		cfg:     cfg,
		clock:   clock,
	}
}

// Fingerprint derives the cache key: sha256 of the lowercased, trimmed
// query string.
func Fingerprint(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored payload for query if present and fresh.
func (s *Store) Get(query string) (wine.SearchResult, bool) {
	key := Fingerprint(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.clock.Now().Sub(e.at) >= s.cfg.TTL {
		metrics.ObserveCacheMiss()
		return wine.SearchResult{}, false
	}
	metrics.ObserveCacheHit()
	return e.payload, true
}

// Put stores the payload for query, evicting the oldest entries in batch
// when the map grows past capacity.
func (s *Store) Put(query string, payload wine.SearchResult) {
	key := Fingerprint(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{at: s.clock.Now(), payload: payload}
	if len(s.entries) > s.cfg.Capacity {
		s.evictOldestLocked()
	}
}

// Len reports the current entry count for health introspection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictOldestLocked drops oldest-first until at most half capacity
// remains. Batch eviction amortizes the sort cost on a constrained host.
func (s *Store) evictOldestLocked() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, aged{key: k, at: e.at})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	target := s.cfg.Capacity / 2
	for _, a := range all {
		if len(s.entries) <= target {
			break
		}
		delete(s.entries, a.key)
		metrics.ObserveCacheEviction()
	}
}
