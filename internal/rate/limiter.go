package rate

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config holds limiter tuning parameters.
type Config struct {
	// Prefix is prepended to every subject to form the store key.
	Prefix      string
	Window      time.Duration
	MaxRequests int
	FailOpen    bool
}

// Limiter enforces a fixed-window budget per subject.
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
}

// New creates a [Limiter] over store. A nil logger discards output.
func New(store Store, cfg Config, logger *slog.Logger) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate: store is required")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("rate: window must be > 0")
	}
	if cfg.MaxRequests <= 0 {
		return nil, errors.New("rate: max requests must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Limiter{store: store, config: cfg, logger: logger}, nil
}

func (l *Limiter) key(subject string) string {
	return l.config.Prefix + subject
}

func (l *Limiter) storeFailed(op, subject string, err error) {
	l.logger.Warn("providerAuth: rate limit store unavailable",
		"op", op, "prefix", l.config.Prefix, "subject", subject, "fail_open", l.config.FailOpen, "error", err)
}

// IsLimited reports whether subject has used its budget.
func (l *Limiter) IsLimited(ctx context.Context, subject string) bool {
	n, err := l.store.Get(ctx, l.key(subject))
	if err != nil {
		l.storeFailed("is_limited", subject, err)
		return !l.config.FailOpen
	}
	return n >= int64(l.config.MaxRequests)
}

// Increment records one request for subject and returns the new count. When
// the count exceeds the budget it also returns ErrRateLimited. Store errors
// are logged and returned as the store reported them; [RedisStore] wraps its
// failures in ErrStoreUnavailable.
func (l *Limiter) Increment(ctx context.Context, subject string) (int64, error) {
	n, err := l.store.IncrWithTTL(ctx, l.key(subject), l.config.Window)
	if err != nil {
		l.storeFailed("increment", subject, err)
		return 0, err
	}
	if n > int64(l.config.MaxRequests) {
		return n, ErrRateLimited
	}
	return n, nil
}

// Remaining returns how many requests subject may still make in the window.
func (l *Limiter) Remaining(ctx context.Context, subject string) int {
	n, err := l.store.Get(ctx, l.key(subject))
	if err != nil {
		l.storeFailed("remaining", subject, err)
		if l.config.FailOpen {
			return l.config.MaxRequests
		}
		return 0
	}
	left := int64(l.config.MaxRequests) - n
	if left < 0 {
		return 0
	}
	return int(left)
}

// TimeUntilReset returns the time left in subject's current window, or 0
// when no window is open.
func (l *Limiter) TimeUntilReset(ctx context.Context, subject string) time.Duration {
	d, err := l.store.TTL(ctx, l.key(subject))
	if err != nil {
		l.storeFailed("time_until_reset", subject, err)
		if l.config.FailOpen {
			return 0
		}
		return l.config.Window
	}
	return d
}

// Reset clears subject's window.
func (l *Limiter) Reset(ctx context.Context, subject string) error {
	if err := l.store.Delete(ctx, l.key(subject)); err != nil {
		l.storeFailed("reset", subject, err)
		return err
	}
	return nil
}
