package strategy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macave/vivino-gateway/internal/relay"
	"github.com/macave/vivino-gateway/internal/session"
	"github.com/macave/vivino-gateway/internal/wine"
)

const stubPayload = `{"explore_vintage":{"matches":[{"vintage":{"wine":{"name":"Château Margaux","type_id":1,"region":{"name":"Bordeaux"}},"statistics":{"ratings_average":4.6,"ratings_count":12}},"price":{"amount":350}}]}}`

func upstreamFor(srv *httptest.Server) Upstream {
	return Upstream{
		APIEndpoint:  srv.URL + "/api/explore/explore",
		SiteURL:      srv.URL,
		CountryCode:  "FR",
		CurrencyCode: "EUR",
		Language:     "fr",
	}
}

func TestDirectAPI_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "FR", r.URL.Query().Get("country_code"))
		require.Equal(t, "margaux", r.URL.Query().Get("q"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(stubPayload))
	}))
	t.Cleanup(srv.Close)

	s := NewDirectAPI(srv.Client(), upstreamFor(srv), Profile{UserAgent: "ua"})
	records, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Château Margaux", records[0].Name)
	require.Equal(t, "Bordeaux", records[0].Region)
	require.Equal(t, "350€", *records[0].Price)
}

func TestDirectAPI_RejectionIsClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	s := NewDirectAPI(srv.Client(), upstreamFor(srv), Profile{})
	_, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.Error(t, err)

	var se *wine.StrategyError
	require.True(t, errors.As(err, &se))
	require.Equal(t, wine.FailureRejected, se.Class)
}

func TestDirectAPI_TransportErrorClasses(t *testing.T) {
	t.Parallel()

	up := Upstream{
		APIEndpoint: "http://127.0.0.1:1/api/explore/explore",
		SiteURL:     "http://127.0.0.1:1",
	}
	s := NewDirectAPI(&http.Client{}, up, Profile{})

	_, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.Error(t, err)
	var se *wine.StrategyError
	require.True(t, errors.As(err, &se))
	require.Equal(t, wine.FailureMalformed, se.Class, "refused connection is not a timeout")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	_, err = s.Fetch(ctx, Query{Text: "margaux"})
	require.Error(t, err)
	require.True(t, errors.As(err, &se))
	require.Equal(t, wine.FailureTimeout, se.Class)
}

func TestSessionAPI_ResetRetryOnRejection(t *testing.T) {
	t.Parallel()

	var apiCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	})
	mux.HandleFunc("/api/explore/explore", func(w http.ResponseWriter, _ *http.Request) {
		if apiCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(stubPayload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mgr, err := session.New(session.Config{WarmURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	s := NewSessionAPI(mgr, upstreamFor(srv))
	records, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int32(2), apiCalls.Load(), "exactly one reset-and-retry cycle")
}

func TestSessionAPI_PersistentRejectionFails(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	})
	var apiCalls atomic.Int32
	mux.HandleFunc("/api/explore/explore", func(w http.ResponseWriter, _ *http.Request) {
		apiCalls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mgr, err := session.New(session.Config{WarmURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	s := NewSessionAPI(mgr, upstreamFor(srv))
	_, err = s.Fetch(context.Background(), Query{Text: "margaux"})
	require.Error(t, err)

	var se *wine.StrategyError
	require.True(t, errors.As(err, &se))
	require.Equal(t, wine.FailureRejected, se.Class)
	require.Equal(t, int32(2), apiCalls.Load(), "no unbounded retry loop")
}

func TestRelayAPI_UnwrapsEnvelope(t *testing.T) {
	t.Parallel()

	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("url"), "relay must receive the embedded target")
		_, _ = w.Write([]byte(stubPayload))
	}))
	t.Cleanup(relaySrv.Close)

	adapter := testAdapter{base: relaySrv.URL}
	s := NewRelayAPI(adapter, relaySrv.Client(), Upstream{APIEndpoint: "https://upstream.example/api"}, Profile{})
	records, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "relay-api-test", s.Name())
}

func TestRelayAPI_MalformedEnvelope(t *testing.T) {
	t.Parallel()

	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(relaySrv.Close)

	adapter := testAdapter{base: relaySrv.URL}
	s := NewRelayAPI(adapter, relaySrv.Client(), Upstream{APIEndpoint: "https://upstream.example/api"}, Profile{})
	_, err := s.Fetch(context.Background(), Query{Text: "margaux"})
	require.Error(t, err)

	var se *wine.StrategyError
	require.True(t, errors.As(err, &se))
	require.Equal(t, wine.FailureMalformed, se.Class)
}

// testAdapter relays through a local server and passes bodies through
// with the same minimum-length rule as the raw relays.
type testAdapter struct {
	base string
}

func (a testAdapter) Name() string { return "test" }

func (a testAdapter) BuildURL(target string) string {
	return a.base + "/?url=" + target
}

func (a testAdapter) Unwrap(body []byte) ([]byte, error) {
	return relay.AllOriginsRaw{}.Unwrap(body)
}
