package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/macave/vivino-gateway/internal/metrics"
	"github.com/macave/vivino-gateway/internal/wine"
)

// DefaultAttemptTimeout bounds one strategy attempt when no budget is
// configured.
const DefaultAttemptTimeout = 12 * time.Second

// Chain executes its strategies in declared order, one at a time, and
// stops at the first non-empty result. A failure of any single strategy
// is recorded and never aborts the chain.
type Chain struct {
	strategies []Strategy
	timeout    time.Duration
	logger     *zap.Logger
}

// NewChain builds a Chain over the given ordered strategies.
func NewChain(strategies []Strategy, timeout time.Duration, logger *zap.Logger) *Chain {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	return &Chain{strategies: strategies, timeout: timeout, logger: logger}
}

// Outcome is the terminal state of one chain run. Empty Records with a
// populated Failures list means every strategy was exhausted.
type Outcome struct {
	Records  []wine.Record
	Source   string
	Failures []string
}

// Run tries each strategy under its own timeout until one produces a
// non-empty record list.
func (c *Chain) Run(ctx context.Context, q Query) Outcome {
	var failures []string
	for _, s := range c.strategies {
		start := time.Now()
		records, err := c.attempt(ctx, s, q)
		elapsed := time.Since(start)
		switch {
		case err != nil:
			metrics.ObserveStrategyAttempt(s.Name(), string(classify(err)), elapsed)
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), err))
			c.logger.Warn("strategy failed",
				zap.String("strategy", s.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		case len(records) == 0:
			metrics.ObserveStrategyAttempt(s.Name(), string(wine.FailureEmpty), elapsed)
			failures = append(failures, s.Name()+": no records")
			c.logger.Debug("strategy returned nothing", zap.String("strategy", s.Name()))
		default:
			metrics.ObserveStrategyAttempt(s.Name(), "success", elapsed)
			c.logger.Info("strategy succeeded",
				zap.String("strategy", s.Name()),
				zap.Int("records", len(records)),
				zap.Duration("elapsed", elapsed),
			)
			return Outcome{Records: records, Source: s.Name()}
		}
	}
	return Outcome{Failures: failures}
}

// TraceEntry reports one strategy's independent result for the debug
// endpoint.
type TraceEntry struct {
	Strategy   string `json:"strategy"`
	OK         bool   `json:"ok"`
	Count      int    `json:"count"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Sample     string `json:"sample,omitempty"`
}

// Trace runs every strategy without short-circuiting, used to diagnose
// which upstream path currently works.
func (c *Chain) Trace(ctx context.Context, q Query) []TraceEntry {
	entries := make([]TraceEntry, 0, len(c.strategies))
	for _, s := range c.strategies {
		start := time.Now()
		records, err := c.attempt(ctx, s, q)
		entry := TraceEntry{
			Strategy:   s.Name(),
			Count:      len(records),
			DurationMs: time.Since(start).Milliseconds(),
		}
		switch {
		case err != nil:
			entry.Error = err.Error()
		case len(records) == 0:
			entry.Error = "no records"
		default:
			entry.OK = true
			entry.Sample = records[0].Name
		}
		entries = append(entries, entry)
	}
	return entries
}

// attempt runs one strategy under the per-attempt timeout, converting a
// panic into a malformed-class failure so a bad parse can never take
// down the request.
func (c *Chain) attempt(ctx context.Context, s Strategy, q Query) (records []wine.Record, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = wine.NewStrategyError(s.Name(), wine.FailureMalformed, fmt.Errorf("panic: %v", r))
		}
	}()
	records, err = s.Fetch(attemptCtx, q)
	if err == nil && attemptCtx.Err() != nil {
		err = wine.NewStrategyError(s.Name(), wine.FailureTimeout, attemptCtx.Err())
	}
	return records, err
}

func classify(err error) wine.FailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return wine.FailureTimeout
	}
	return wine.ClassOf(err)
}
