package providerAuth

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/providerAuth/internal"
	internalaudit "github.com/MrEthical07/providerAuth/internal/audit"
	"github.com/MrEthical07/providerAuth/internal/flows"
	"github.com/MrEthical07/providerAuth/internal/rate"
	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/password"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// Engine authenticates providers and manages their refresh-token lifecycle.
//
// Engine instances are built by [Builder.Build] and are safe for concurrent
// use. The engine is the only writer of lockout state and revocation flags.
type Engine struct {
	config       Config
	logger       *slog.Logger
	now          func() time.Time
	credentials  store.CredentialStore
	ledger       store.AttemptLedger
	tokens       store.TokenStore
	hasher       *password.Hasher
	tokenHasher  *internal.TokenHasher
	jwtManager   *jwt.Manager
	registration *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	flow         flows.Service
}

// Close drains the audit dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditStats returns delivered and dropped audit events per ledger outcome.
func (e *Engine) AuditStats() AuditStats {
	var d *internalaudit.Dispatcher
	if e != nil {
		d = e.audit
	}
	return d.Stats()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

func (e *Engine) issueAccess(p *store.Principal, ttl time.Duration) (jwt.Issued, error) {
	return e.jwtManager.Issue(jwt.KindAccess, p.ID.String(), &jwt.Profile{
		Email:              p.Email,
		Role:               p.RoleOrDefault(),
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Specialization:     p.Specialization,
		VerificationStatus: p.VerificationStatus,
	}, ttl)
}

func (e *Engine) issueRefresh(principalID uuid.UUID, ttl time.Duration) (jwt.Issued, error) {
	return e.jwtManager.Issue(jwt.KindRefresh, principalID.String(), nil, ttl)
}

func (e *Engine) parseRefresh(token string) (*jwt.Claims, error) {
	return e.jwtManager.ParseKind(token, jwt.KindRefresh)
}

func (e *Engine) parseAccess(token string) (*jwt.Claims, error) {
	return e.jwtManager.ParseKind(token, jwt.KindAccess)
}

// verifyPassword treats oversized input as a mismatch so it goes through
// the normal failed-attempt accounting.
func (e *Engine) verifyPassword(plain, encoded string) (bool, error) {
	ok, err := e.hasher.Verify(plain, encoded)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return false, nil
	}
	return ok, err
}

func (e *Engine) resolveRouteMode(routeMode int) (int, error) {
	mode, ok := flows.ResolveRouteMode(routeMode, int(e.config.ValidationMode), flows.ModeResolverConfig{
		ModeInherit: int(ModeInherit),
		ModeJWTOnly: int(ModeJWTOnly),
		ModeStrict:  int(ModeStrict),
	})
	if !ok {
		return 0, ErrInvalidRouteMode
	}
	return mode, nil
}

func (e *Engine) buildFlows(phones store.PhoneDirectory) flows.Service {
	cfg := e.config
	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			MaxAttempts:     cfg.Login.MaxLoginAttempts,
			LockoutDuration: cfg.Login.LockoutDuration,
			RateLimitWindow: cfg.RateLimit.Window,
			RateLimitMax:    cfg.RateLimit.MaxAttempts,
			MaxSessions:     cfg.Login.MaxConcurrentSessions,
			AccessTTL:       cfg.Tokens.AccessTTL,
			RefreshTTL:      cfg.Tokens.RefreshTTL,
			RememberMeTTL:   cfg.Tokens.RememberMeTTL,
			StoreTimeout:    cfg.StoreTimeout,
			UpgradeOnLogin:  cfg.Password.UpgradeOnLogin,

			Now:   e.now,
			NewID: uuid.New,

			Credentials: e.credentials,
			Phones:      phones,
			Ledger:      e.ledger,
			Tokens:      e.tokens,

			VerifyPassword:       e.verifyPassword,
			PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,
			HashPassword:         e.hasher.Hash,
			IssueAccess:          e.issueAccess,
			IssueRefresh:         e.issueRefresh,
			HashToken:            e.tokenHasher.Hash,

			Warn: e.warn,
		},
		Refresh: flows.RefreshDeps{
			AccessTTL:     cfg.Tokens.AccessTTL,
			RefreshTTL:    cfg.Tokens.RefreshTTL,
			RememberMeTTL: cfg.Tokens.RememberMeTTL,
			StoreTimeout:  cfg.StoreTimeout,
			Now:           e.now,
			NewID:         uuid.New,
			Credentials:   e.credentials,
			Tokens:        e.tokens,
			ParseRefresh:  e.parseRefresh,
			IssueAccess:   e.issueAccess,
			IssueRefresh:  e.issueRefresh,
			HashToken:     e.tokenHasher.Hash,
		},
		Validate: flows.ValidateDeps{
			ParseAccess:      e.parseAccess,
			ResolveRouteMode: e.resolveRouteMode,
			ModeJWTOnly:      int(ModeJWTOnly),
			Credentials:      e.credentials,
		},
		Logout: flows.LogoutDeps{
			Now:          e.now,
			Tokens:       e.tokens,
			ParseRefresh: e.parseRefresh,
			HashToken:    e.tokenHasher.Hash,
		},
		Account: flows.AccountDeps{
			Now:         e.now,
			Credentials: e.credentials,
			Tokens:      e.tokens,
		},
	})
}

func tokenPair(access, refresh jwt.Issued) TokenPair {
	return TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        TokenTypeBearer,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
		ExpiresIn:        int64(access.ExpiresAt.Sub(access.IssuedAt) / time.Second),
		RefreshExpiresIn: int64(refresh.ExpiresAt.Sub(refresh.IssuedAt) / time.Second),
	}
}

func summarize(p *store.Principal) PrincipalSummary {
	return PrincipalSummary{
		ID:                 p.ID.String(),
		Email:              p.Email,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		FullName:           p.FullName(),
		Role:               p.RoleOrDefault(),
		Specialization:     p.Specialization,
		VerificationStatus: p.VerificationStatus,
		LoginCount:         p.LoginCount,
		LastLogin:          p.LastLogin,
	}
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
