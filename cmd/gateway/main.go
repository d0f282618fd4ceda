// Package main wires together the wine search gateway service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/macave/vivino-gateway/internal/api"
	"github.com/macave/vivino-gateway/internal/cache"
	"github.com/macave/vivino-gateway/internal/clock/system"
	"github.com/macave/vivino-gateway/internal/config"
	collyfetcher "github.com/macave/vivino-gateway/internal/fetcher/colly"
	"github.com/macave/vivino-gateway/internal/fetcher/headless"
	"github.com/macave/vivino-gateway/internal/logging"
	"github.com/macave/vivino-gateway/internal/metrics"
	"github.com/macave/vivino-gateway/internal/relay"
	"github.com/macave/vivino-gateway/internal/session"
	"github.com/macave/vivino-gateway/internal/strategy"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("gateway exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store := cache.New(cache.Config{
		TTL:      cfg.CacheTTL(),
		Capacity: cfg.Cache.Capacity,
	}, system.New())

	sess, err := session.New(session.Config{
		UserAgent:      cfg.Session.UserAgent,
		AcceptLanguage: cfg.Session.AcceptLanguage,
		WarmURL:        cfg.Upstream.SiteURL,
		Timeout:        cfg.AttemptTimeout(),
	}, logger.Named("session"))
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	if cfg.Session.WarmOnStart {
		warmCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout())
		sess.Warm(warmCtx)
		cancel()
	}

	chain, closeChain, err := buildChain(cfg, sess, logger)
	if err != nil {
		return err
	}
	defer closeChain()

	server := api.NewServer(store, chain, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildChain declares the fixed strategy order: direct API, session API,
// relay adapters against the API endpoint, relay HTML scrape, direct
// HTML scrape, then the headless render when enabled.
func buildChain(cfg config.Config, sess *session.Manager, logger *zap.Logger) (*strategy.Chain, func(), error) {
	upstream := strategy.Upstream{
		APIEndpoint:   cfg.Upstream.APIEndpoint,
		SiteURL:       cfg.Upstream.SiteURL,
		CountryCode:   cfg.Upstream.CountryCode,
		CurrencyCode:  cfg.Upstream.CurrencyCode,
		Language:      cfg.Upstream.Language,
		PriceRangeMin: cfg.Upstream.PriceRangeMin,
		PriceRangeMax: cfg.Upstream.PriceRangeMax,
	}
	profile := strategy.Profile{
		UserAgent:      cfg.Session.UserAgent,
		AcceptLanguage: cfg.Session.AcceptLanguage,
	}
	client := &http.Client{Timeout: cfg.AttemptTimeout()}

	strategies := []strategy.Strategy{
		strategy.NewDirectAPI(client, upstream, profile),
		strategy.NewSessionAPI(sess, upstream),
	}
	for _, adapter := range relay.DefaultSet() {
		strategies = append(strategies, strategy.NewRelayAPI(adapter, client, upstream, profile))
	}
	strategies = append(strategies,
		strategy.NewRelayHTML(relay.AllOriginsRaw{}, client, upstream, profile),
		strategy.NewScrapeHTML(collyfetcher.New(collyfetcher.Config{
			UserAgent:      cfg.Session.UserAgent,
			AcceptLanguage: cfg.Session.AcceptLanguage,
			Timeout:        cfg.AttemptTimeout(),
		}), upstream),
	)

	closeChain := func() {}
	if cfg.Headless.Enabled {
		renderer, err := headless.New(headless.Config{
			UserAgent:         cfg.Session.UserAgent,
			AcceptLanguage:    cfg.Session.AcceptLanguage,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init headless: %w", err)
		}
		strategies = append(strategies, strategy.NewHeadlessScrape(renderer, upstream))
		closeChain = renderer.Close
	}

	chain := strategy.NewChain(strategies, cfg.AttemptTimeout(), logger.Named("chain"))
	return chain, closeChain, nil
}
