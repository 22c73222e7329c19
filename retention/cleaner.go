package retention

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/providerAuth/store"
)

const (
	DefaultTokenRetention   = 30 * 24 * time.Hour
	DefaultAttemptRetention = 90 * 24 * time.Hour
	DefaultInterval         = time.Hour
)

// Config controls a [Cleaner]. Zero durations use the defaults.
type Config struct {
	TokenRetention   time.Duration
	AttemptRetention time.Duration
	Interval         time.Duration
}

// Report is the outcome of one pruning pass.
type Report struct {
	TokensDeleted   int64
	AttemptsDeleted int64
}

// Cleaner deletes aged records from whichever pruners it was given.
type Cleaner struct {
	tokens   store.TokenPruner
	attempts store.AttemptPruner
	config   Config
	now      func() time.Time
	logger   *slog.Logger
}

// New returns a Cleaner. Either pruner may be nil to skip that kind of
// record; a nil logger discards output.
func New(tokens store.TokenPruner, attempts store.AttemptPruner, cfg Config, logger *slog.Logger) *Cleaner {
	if cfg.TokenRetention <= 0 {
		cfg.TokenRetention = DefaultTokenRetention
	}
	if cfg.AttemptRetention <= 0 {
		cfg.AttemptRetention = DefaultAttemptRetention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cleaner{
		tokens:   tokens,
		attempts: attempts,
		config:   cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock. Intended for tests.
func (c *Cleaner) WithClock(now func() time.Time) *Cleaner {
	c.now = now
	return c
}

// RunOnce performs a single pass. Both pruners run even if the first fails;
// the returned error joins their failures.
func (c *Cleaner) RunOnce(ctx context.Context) (Report, error) {
	var (
		rep  Report
		errs []error
	)
	now := c.now()

	if c.tokens != nil {
		n, err := c.tokens.DeleteExpiredBefore(ctx, now.Add(-c.config.TokenRetention))
		if err != nil {
			errs = append(errs, err)
		}
		rep.TokensDeleted = n
	}
	if c.attempts != nil {
		n, err := c.attempts.DeleteAttemptsBefore(ctx, now.Add(-c.config.AttemptRetention))
		if err != nil {
			errs = append(errs, err)
		}
		rep.AttemptsDeleted = n
	}
	return rep, errors.Join(errs...)
}

// Run prunes once immediately and then on every interval until ctx is done.
// It returns ctx.Err().
func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		c.pass(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Cleaner) pass(ctx context.Context) {
	rep, err := c.RunOnce(ctx)
	if err != nil {
		c.logger.Warn("providerAuth: retention pass failed", "error", err)
	}
	if rep.TokensDeleted > 0 || rep.AttemptsDeleted > 0 {
		c.logger.Info("providerAuth: retention pass",
			"tokens_deleted", rep.TokensDeleted, "attempts_deleted", rep.AttemptsDeleted)
	}
}
