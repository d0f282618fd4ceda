package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://www.vivino.com/api/explore/explore", cfg.Upstream.APIEndpoint)
	require.Equal(t, "FR", cfg.Upstream.CountryCode)
	require.Equal(t, "EUR", cfg.Upstream.CurrencyCode)
	require.Equal(t, 500, cfg.Upstream.PriceRangeMax)
	require.Equal(t, time.Hour, cfg.CacheTTL())
	require.Equal(t, 400, cfg.Cache.Capacity)
	require.Equal(t, 12*time.Second, cfg.AttemptTimeout())
	require.False(t, cfg.Headless.Enabled)
	require.True(t, cfg.Session.WarmOnStart)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:   ServerConfig{Port: 8080},
		Upstream: UpstreamConfig{APIEndpoint: "https://api.example", SiteURL: "https://site.example"},
		Cache:    CacheConfig{TTLSeconds: 3600, Capacity: 400},
		Chain:    ChainConfig{AttemptTimeoutSeconds: 12},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(Config) Config{
		"zero port":           func(c Config) Config { c.Server.Port = 0; return c },
		"missing endpoint":    func(c Config) Config { c.Upstream.APIEndpoint = ""; return c },
		"missing site url":    func(c Config) Config { c.Upstream.SiteURL = ""; return c },
		"zero ttl":            func(c Config) Config { c.Cache.TTLSeconds = 0; return c },
		"zero capacity":       func(c Config) Config { c.Cache.Capacity = 0; return c },
		"zero timeout":        func(c Config) Config { c.Chain.AttemptTimeoutSeconds = 0; return c },
		"headless no timeout": func(c Config) Config { c.Headless = HeadlessConfig{Enabled: true}; return c },
	}
	for name, mutate := range cases {
		require.Error(t, mutate(valid).Validate(), name)
	}
}
