package providerAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/providerAuth/internal/flows"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// LoginStatus is the read-only login posture of one principal. It never
// contains password hashes or token material.
type LoginStatus struct {
	PrincipalID    uuid.UUID
	Active         bool
	EmailVerified  bool
	FailedAttempts int
	Locked         bool
	LockedUntil    time.Time
	// RecentFailures counts failed ledger rows for the principal's email
	// inside the rate-limit window.
	RecentFailures int
	RateLimited    bool
	ActiveSessions int
}

// BackendHealth is the ping result for one configured store.
type BackendHealth struct {
	Name      string
	Checked   bool
	Available bool
	Latency   time.Duration
	Err       error
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	Backends []BackendHealth
}

// Healthy reports whether every checked backend answered.
func (h HealthStatus) Healthy() bool {
	for _, b := range h.Backends {
		if b.Checked && !b.Available {
			return false
		}
	}
	return true
}

// LoginStatus reports lockout, rate-limit and session state for
// principalID. Nothing is written.
func (e *Engine) LoginStatus(ctx context.Context, principalID uuid.UUID) (*LoginStatus, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	p, err := e.credentials.FindByID(ctx, principalID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, newError(ErrInternal, err)
	}

	now := e.now()
	recent, err := e.ledger.CountFailedSince(ctx, flows.NormalizeIdentifier(p.Email), now.Add(-e.config.RateLimit.Window))
	if err != nil {
		return nil, newError(ErrInternal, err)
	}
	sessions, err := e.tokens.CountActiveForPrincipal(ctx, principalID, now)
	if err != nil {
		return nil, newError(ErrInternal, err)
	}

	st := &LoginStatus{
		PrincipalID:    p.ID,
		Active:         p.Active,
		EmailVerified:  p.EmailVerified,
		FailedAttempts: p.Lockout.FailedAttempts(),
		Locked:         p.Lockout.IsLocked(now),
		RecentFailures: recent,
		RateLimited:    recent >= e.config.RateLimit.MaxAttempts,
		ActiveSessions: sessions,
	}
	if st.Locked {
		st.LockedUntil = p.Lockout.LockedUntil()
	}
	return st, nil
}

// Health pings each configured store that implements [store.Pinger].
// Other stores are listed as unchecked.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{}
	}
	return HealthStatus{Backends: []BackendHealth{
		pingBackend(ctx, "credentials", e.credentials),
		pingBackend(ctx, "attempt_ledger", e.ledger),
		pingBackend(ctx, "token_store", e.tokens),
	}}
}

func pingBackend(ctx context.Context, name string, backend any) BackendHealth {
	out := BackendHealth{Name: name}
	p, ok := backend.(store.Pinger)
	if !ok {
		return out
	}
	out.Checked = true
	start := time.Now()
	out.Err = p.Ping(ctx)
	out.Latency = time.Since(start)
	out.Available = out.Err == nil
	return out
}
