package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	collyfetcher "github.com/macave/vivino-gateway/internal/fetcher/colly"
	"github.com/macave/vivino-gateway/internal/fetcher/headless"
	"github.com/macave/vivino-gateway/internal/relay"
	"github.com/macave/vivino-gateway/internal/session"
	"github.com/macave/vivino-gateway/internal/wine"
)

// DirectAPI calls the explore API with a plain client and browser-like
// headers. Cheapest path; works whenever the upstream is not filtering.
type DirectAPI struct {
	client   *http.Client
	upstream Upstream
	profile  Profile
}

// NewDirectAPI builds the direct API strategy.
func NewDirectAPI(client *http.Client, up Upstream, profile Profile) *DirectAPI {
	return &DirectAPI{client: client, upstream: up, profile: profile}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *DirectAPI) Name() string { return "direct-api" }

// Fetch performs the API call and normalizes the payload.
func (s *DirectAPI) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	body, status, err := doGet(ctx, s.client, s.upstream.APIURL(q), s.profile, "application/json")
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	if session.IsRejection(status) {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected, fmt.Errorf("status %d", status))
	}
	if status != http.StatusOK {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureMalformed, fmt.Errorf("status %d", status))
	}
	return wine.FromAPIPayload(body), nil
}

// SessionAPI calls the explore API through the warmed session and allows
// one reset-and-retry cycle on a rejection signal.
type SessionAPI struct {
	session  *session.Manager
	upstream Upstream
}

// NewSessionAPI builds the session-based API strategy.
func NewSessionAPI(mgr *session.Manager, up Upstream) *SessionAPI {
	return &SessionAPI{session: mgr, upstream: up}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *SessionAPI) Name() string { return "session-api" }

// Fetch performs the warmed call, resetting the session once if the
// upstream rejects it.
func (s *SessionAPI) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	target := s.upstream.APIURL(q)
	body, status, err := s.session.Execute(ctx, target)
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	if session.IsRejection(status) {
		if resetErr := s.session.Reset(ctx); resetErr != nil {
			return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected, resetErr)
		}
		body, status, err = s.session.Execute(ctx, target)
		if err != nil {
			return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
		}
		if session.IsRejection(status) {
			return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected,
				fmt.Errorf("status %d after reset", status))
		}
	}
	if status != http.StatusOK {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureMalformed, fmt.Errorf("status %d", status))
	}
	return wine.FromAPIPayload(body), nil
}

// RelayAPI calls the explore API through one third-party relay.
type RelayAPI struct {
	adapter  relay.Adapter
	client   *http.Client
	upstream Upstream
	profile  Profile
}

// NewRelayAPI builds a relay strategy for one adapter.
func NewRelayAPI(adapter relay.Adapter, client *http.Client, up Upstream, profile Profile) *RelayAPI {
	return &RelayAPI{adapter: adapter, client: client, upstream: up, profile: profile}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *RelayAPI) Name() string { return "relay-api-" + s.adapter.Name() }

// Fetch calls the relay, unwraps its envelope and normalizes the payload.
func (s *RelayAPI) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	target := s.adapter.BuildURL(s.upstream.APIURL(q))
	body, status, err := doGet(ctx, s.client, target, s.profile, "application/json")
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	if status != http.StatusOK {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected, fmt.Errorf("relay status %d", status))
	}
	inner, err := s.adapter.Unwrap(body)
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureMalformed, err)
	}
	return wine.FromAPIPayload(inner), nil
}

// RelayHTML fetches the upstream search page through a relay and parses
// the document.
type RelayHTML struct {
	adapter  relay.Adapter
	client   *http.Client
	upstream Upstream
	profile  Profile
}

// NewRelayHTML builds the relay-fetched HTML scrape strategy.
func NewRelayHTML(adapter relay.Adapter, client *http.Client, up Upstream, profile Profile) *RelayHTML {
	return &RelayHTML{adapter: adapter, client: client, upstream: up, profile: profile}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *RelayHTML) Name() string { return "relay-html-" + s.adapter.Name() }

// Fetch relays the search page and parses it.
func (s *RelayHTML) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	target := s.adapter.BuildURL(s.upstream.SearchPageURL(q))
	body, status, err := doGet(ctx, s.client, target, s.profile, "text/html")
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	if status != http.StatusOK {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected, fmt.Errorf("relay status %d", status))
	}
	inner, err := s.adapter.Unwrap(body)
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), wine.FailureMalformed, err)
	}
	return wine.FromHTMLDocument(inner), nil
}

// ScrapeHTML fetches the search page directly with the Colly fetcher and
// parses the document.
type ScrapeHTML struct {
	fetcher  *collyfetcher.Fetcher
	upstream Upstream
}

// NewScrapeHTML builds the direct HTML scrape strategy.
func NewScrapeHTML(fetcher *collyfetcher.Fetcher, up Upstream) *ScrapeHTML {
	return &ScrapeHTML{fetcher: fetcher, upstream: up}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *ScrapeHTML) Name() string { return "html-scrape" }

// Fetch retrieves and parses the search page.
func (s *ScrapeHTML) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	body, status, err := s.fetcher.Fetch(ctx, s.upstream.SearchPageURL(q))
	if err != nil {
		if session.IsRejection(status) {
			return nil, wine.NewStrategyError(s.Name(), wine.FailureRejected, err)
		}
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	return wine.FromHTMLDocument(body), nil
}

// HeadlessScrape renders the search page in a headless browser and
// parses the resulting DOM. Only wired when headless mode is enabled.
type HeadlessScrape struct {
	fetcher  *headless.Fetcher
	upstream Upstream
}

// NewHeadlessScrape builds the headless render strategy.
func NewHeadlessScrape(fetcher *headless.Fetcher, up Upstream) *HeadlessScrape {
	return &HeadlessScrape{fetcher: fetcher, upstream: up}
}

// Name identifies the strategy in diagnostics and cache source fields.
func (s *HeadlessScrape) Name() string { return "headless-scrape" }

// Fetch renders and parses the search page.
func (s *HeadlessScrape) Fetch(ctx context.Context, q Query) ([]wine.Record, error) {
	body, err := s.fetcher.Fetch(ctx, s.upstream.SearchPageURL(q))
	if err != nil {
		return nil, wine.NewStrategyError(s.Name(), transportClass(err), err)
	}
	return wine.FromHTMLDocument(body), nil
}

// transportClass separates budget exhaustion from other transport
// failures so a refused connection does not surface as "timeout" in the
// chain diagnostics.
func transportClass(err error) wine.FailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return wine.FailureTimeout
	}
	return wine.FailureMalformed
}

func doGet(ctx context.Context, client *http.Client, rawURL string, profile Profile, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if profile.UserAgent != "" {
		req.Header.Set("User-Agent", profile.UserAgent)
	}
	if profile.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", profile.AcceptLanguage)
	}
	req.Header.Set("Accept", accept)
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
