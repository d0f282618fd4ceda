// Package session maintains the warmed connection context used by
// session-based strategies.
package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config shapes the browser profile carried by the session.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	// WarmURL is the upstream root page fetched to collect cookies and
	// anti-bot tokens before the first real query.
	WarmURL string
	Timeout time.Duration
}

// Manager holds a long-lived HTTP client with a cookie jar. The jar is
// shared mutable state across concurrent requests; Warm and Reset are
// serialized by a mutex so two requests cannot race a cookie reset
// against each other's in-flight call.
type Manager struct {
	mu     sync.Mutex
	client *http.Client
	jar    *lockedJar
	cfg    Config
	logger *zap.Logger
	warmed bool
}

// lockedJar delegates to an inner cookie jar that Reset can swap out.
// The http.Client reads its Jar field on every request without holding
// the manager mutex, so the indirection has to carry its own lock.
type lockedJar struct {
	mu    sync.RWMutex
	inner http.CookieJar
}

func (j *lockedJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *lockedJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

func (j *lockedJar) replace(inner http.CookieJar) {
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
}

// New builds a Manager with a fresh cookie jar.
func New(cfg Config, logger *zap.Logger) (*Manager, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}
	jar := &lockedJar{inner: inner}
	return &Manager{
		client: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
		jar:    jar,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Warm issues a best-effort GET of the upstream root page. Failures are
// swallowed; the first real call may simply fail and fall through to the
// next strategy.
func (m *Manager) Warm(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmLocked(ctx)
}

func (m *Manager) warmLocked(ctx context.Context) {
	if m.cfg.WarmURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.WarmURL, nil)
	if err != nil {
		return
	}
	m.applyHeaders(req, "text/html,application/xhtml+xml")
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("session warm failed", zap.Error(err))
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	m.warmed = true
	m.logger.Debug("session warmed", zap.Int("status", resp.StatusCode))
}

// Execute performs a GET through the warmed client and returns the body
// and status code.
func (m *Manager) Execute(ctx context.Context, rawURL string) ([]byte, int, error) {
	m.mu.Lock()
	if !m.warmed {
		m.warmLocked(ctx)
	}
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	m.applyHeaders(req, "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("session request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Reset drops the cookie jar and re-warms. Callers allow at most one
// reset-and-retry cycle per request.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("reset cookie jar: %w", err)
	}
	m.jar.replace(inner)
	m.warmed = false
	m.logger.Info("session reset")
	m.warmLocked(ctx)
	return nil
}

func (m *Manager) applyHeaders(req *http.Request, accept string) {
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}
	if m.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", m.cfg.AcceptLanguage)
	}
	req.Header.Set("Accept", accept)
	if m.cfg.WarmURL != "" {
		req.Header.Set("Referer", m.cfg.WarmURL)
	}
}

// IsRejection reports whether a status code is a bot-rejection signal
// that warrants a session reset.
func IsRejection(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
