// Package config loads and validates gateway configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Session  SessionConfig  `mapstructure:"session"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// UpstreamConfig locates the catalog API and search page.
type UpstreamConfig struct {
	APIEndpoint   string `mapstructure:"api_endpoint"`
	SiteURL       string `mapstructure:"site_url"`
	CountryCode   string `mapstructure:"country_code"`
	CurrencyCode  string `mapstructure:"currency_code"`
	Language      string `mapstructure:"language"`
	PriceRangeMin int    `mapstructure:"price_range_min"`
	PriceRangeMax int    `mapstructure:"price_range_max"`
}

// CacheConfig bounds the result cache.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
	Capacity   int `mapstructure:"capacity"`
}

// ChainConfig governs strategy chain execution.
type ChainConfig struct {
	AttemptTimeoutSeconds int `mapstructure:"attempt_timeout_seconds"`
}

// SessionConfig shapes the browser profile of the warmed session.
type SessionConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	WarmOnStart    bool   `mapstructure:"warm_on_start"`
}

// HeadlessConfig configures the optional browser-rendered strategy.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("upstream.api_endpoint", "https://www.vivino.com/api/explore/explore")
	v.SetDefault("upstream.site_url", "https://www.vivino.com")
	v.SetDefault("upstream.country_code", "FR")
	v.SetDefault("upstream.currency_code", "EUR")
	v.SetDefault("upstream.language", "fr")
	v.SetDefault("upstream.price_range_min", 0)
	v.SetDefault("upstream.price_range_max", 500)
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("cache.capacity", 400)
	v.SetDefault("chain.attempt_timeout_seconds", 12)
	v.SetDefault("session.user_agent",
		"Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 Chrome/120.0.0.0 Mobile Safari/537.36")
	v.SetDefault("session.accept_language", "fr-FR,fr;q=0.9")
	v.SetDefault("session.warm_on_start", true)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Upstream.APIEndpoint == "" {
		return fmt.Errorf("upstream.api_endpoint must be set")
	}
	if c.Upstream.SiteURL == "" {
		return fmt.Errorf("upstream.site_url must be set")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be > 0")
	}
	if c.Chain.AttemptTimeoutSeconds <= 0 {
		return fmt.Errorf("chain.attempt_timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSec <= 0 {
		return fmt.Errorf("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	return nil
}

// CacheTTL converts the configured TTL into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// AttemptTimeout converts the per-strategy budget into a duration.
func (c Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Chain.AttemptTimeoutSeconds) * time.Second
}
