package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureValidation
	LoginFailureRateLimited
	LoginFailureNotFound
	LoginFailureDisabled
	LoginFailureUnverified
	LoginFailureLocked
	LoginFailureBadPassword
	LoginFailureSessionLimit
	LoginFailureInternal
)

// LoginInput is the flow-local login request shape.
type LoginInput struct {
	Identifier string
	Password   string
	RememberMe bool
	DeviceInfo string
	IPAddress  string
	UserAgent  string
}

// LoginResult carries either the issued pair or failure metadata. Principal
// is set whenever the lookup succeeded and reflects the post-flow state.
type LoginResult struct {
	Failure          LoginFailureKind
	Err              error
	Identifier       string
	Principal        *store.Principal
	LockedNow        bool
	PasswordUpgraded bool
	ActiveSessions   int
	Access           jwt.Issued
	Refresh          jwt.Issued
}

// LoginDeps captures login dependencies and policy.
type LoginDeps struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int
	MaxSessions     int
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RememberMeTTL   time.Duration
	StoreTimeout    time.Duration
	UpgradeOnLogin  bool

	Now   func() time.Time
	NewID func() uuid.UUID

	Credentials store.CredentialStore
	Phones      store.PhoneDirectory
	Ledger      store.AttemptLedger
	Tokens      store.TokenStore

	VerifyPassword       func(password, encoded string) (bool, error)
	PasswordNeedsUpgrade func(encoded string) (bool, error)
	HashPassword         func(password string) (string, error)
	IssueAccess          func(p *store.Principal, ttl time.Duration) (jwt.Issued, error)
	IssueRefresh         func(principalID uuid.UUID, ttl time.Duration) (jwt.Issued, error)
	HashToken            func(token string) string

	Warn func(string, ...any)
}

// NormalizeIdentifier trims the identifier and lower-cases email addresses.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if IsEmail(identifier) {
		return strings.ToLower(identifier)
	}
	return identifier
}

// IsEmail reports whether identifier should be looked up as an email address.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// RunLogin runs the login state machine. Every step short-circuits; failure
// paths after the rate-limit check append exactly one ledger row, except the
// session cap which is a capacity guard and leaves no trace in the ledger.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.New
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	identifier := NormalizeIdentifier(in.Identifier)
	res := LoginResult{Identifier: identifier}
	if identifier == "" || in.Password == "" {
		res.Failure = LoginFailureValidation
		return res
	}

	now := deps.Now()
	since := now.Add(-deps.RateLimitWindow)

	byIdentifier, err := deps.Ledger.CountFailedSince(ctx, identifier, since)
	if err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}
	byIP := 0
	if in.IPAddress != "" {
		byIP, err = deps.Ledger.CountFailedByIPSince(ctx, in.IPAddress, since)
		if err != nil {
			return failLogin(res, LoginFailureInternal, err)
		}
	}
	if byIdentifier >= deps.RateLimitMax || byIP >= 2*deps.RateLimitMax {
		return failLogin(res, LoginFailureRateLimited, nil)
	}

	recordAttempt := func(p *store.Principal, outcome store.Outcome, reason store.FailureReason) error {
		attempt := store.LoginAttempt{
			ID:            deps.NewID(),
			Identifier:    identifier,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			Outcome:       outcome,
			FailureReason: reason,
			CreatedAt:     now,
		}
		if p != nil {
			id := p.ID
			attempt.PrincipalID = &id
		}
		return deps.Ledger.Append(ctx, attempt)
	}
	recordFailure := func(p *store.Principal, outcome store.Outcome, reason store.FailureReason) {
		if err := recordAttempt(p, outcome, reason); err != nil {
			deps.Warn("providerAuth: ledger append failed", "outcome", string(outcome), "error", err)
		}
	}

	p, err := lookupPrincipal(ctx, identifier, deps)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			recordFailure(nil, store.OutcomeFailed, store.ReasonAccountNotFound)
			return failLogin(res, LoginFailureNotFound, err)
		}
		return failLogin(res, LoginFailureInternal, err)
	}
	res.Principal = p

	if !p.Active {
		recordFailure(p, store.OutcomeAccountDisabled, store.ReasonAccountDisabled)
		return failLogin(res, LoginFailureDisabled, nil)
	}
	if !p.EmailVerified {
		recordFailure(p, store.OutcomeEmailNotVerified, store.ReasonEmailNotVerified)
		return failLogin(res, LoginFailureUnverified, nil)
	}
	if p.Lockout.IsLocked(now) {
		recordFailure(p, store.OutcomeLocked, store.ReasonAccountLocked)
		return failLogin(res, LoginFailureLocked, nil)
	}

	ok, err := deps.VerifyPassword(in.Password, p.PasswordHash)
	if err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}
	if !ok {
		state, lockedNow, storeErr := deps.Credentials.RecordFailure(ctx, p.ID, now, deps.MaxAttempts, deps.LockoutDuration)
		if storeErr == nil {
			p.Lockout = state
			res.LockedNow = lockedNow
		}
		if res.LockedNow {
			recordFailure(p, store.OutcomeLocked, store.ReasonTooManyAttempts)
		} else {
			recordFailure(p, store.OutcomeFailed, store.ReasonInvalidPassword)
		}
		if storeErr != nil {
			return failLogin(res, LoginFailureInternal, storeErr)
		}
		return failLogin(res, LoginFailureBadPassword, nil)
	}

	active, err := deps.Tokens.CountActiveForPrincipal(ctx, p.ID, now)
	if err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}
	if deps.MaxSessions > 0 && active >= deps.MaxSessions {
		res.ActiveSessions = active
		return failLogin(res, LoginFailureSessionLimit, nil)
	}

	refreshTTL := deps.RefreshTTL
	if in.RememberMe {
		refreshTTL = deps.RememberMeTTL
	}
	access, err := deps.IssueAccess(p, deps.AccessTTL)
	if err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}
	refresh, err := deps.IssueRefresh(p.ID, refreshTTL)
	if err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}

	// Bookkeeping must finish even if the caller goes away, otherwise the
	// caller could hold a token pair the store never saw.
	bctx, cancel := detach(ctx, deps.StoreTimeout)
	defer cancel()

	hash := deps.HashToken(refresh.Token)
	rec := store.RefreshTokenRecord{
		ID:          deps.NewID(),
		PrincipalID: p.ID,
		TokenHash:   hash,
		TokenID:     refresh.ID,
		ExpiresAt:   refresh.ExpiresAt,
		RememberMe:  in.RememberMe,
		DeviceInfo:  in.DeviceInfo,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		CreatedAt:   now,
	}
	if err := deps.Tokens.Save(bctx, rec); err != nil {
		return failLogin(res, LoginFailureInternal, err)
	}

	update := store.LoginUpdate{At: now, ActiveSessions: active + 1}
	if deps.UpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil {
		if upgrade, err := deps.PasswordNeedsUpgrade(p.PasswordHash); err == nil && upgrade {
			if encoded, err := deps.HashPassword(in.Password); err == nil {
				update.PasswordHash = encoded
				update.PreviousHash = p.PasswordHash
			} else {
				deps.Warn("providerAuth: password upgrade failed", "principal_id", p.ID.String(), "error", err)
			}
		}
	}

	if err := deps.Credentials.RecordLogin(bctx, p.ID, update); err != nil {
		revokeIssued(bctx, deps, hash, now)
		return failLogin(res, LoginFailureInternal, err)
	}
	p.RecordLogin(update)
	upgraded := update.PasswordHash != ""

	attempt := store.LoginAttempt{
		ID:          deps.NewID(),
		PrincipalID: &rec.PrincipalID,
		Identifier:  identifier,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		Outcome:     store.OutcomeSuccess,
		CreatedAt:   now,
	}
	if err := deps.Ledger.Append(bctx, attempt); err != nil {
		revokeIssued(bctx, deps, hash, now)
		return failLogin(res, LoginFailureInternal, err)
	}

	res.ActiveSessions = active + 1
	res.PasswordUpgraded = upgraded
	res.Access = access
	res.Refresh = refresh
	return res
}

func lookupPrincipal(ctx context.Context, identifier string, deps LoginDeps) (*store.Principal, error) {
	if !IsEmail(identifier) && deps.Phones != nil {
		return deps.Phones.FindByPhone(ctx, identifier)
	}
	return deps.Credentials.FindByIdentifier(ctx, identifier)
}

func revokeIssued(ctx context.Context, deps LoginDeps, hash string, now time.Time) {
	if _, err := deps.Tokens.RevokeByHash(ctx, hash, now); err != nil {
		deps.Warn("providerAuth: revoke after failed bookkeeping failed", "error", err)
	}
}

func failLogin(res LoginResult, kind LoginFailureKind, err error) LoginResult {
	res.Failure = kind
	res.Err = err
	return res
}

// detach returns a context that ignores the parent's cancellation but keeps
// its values, bounded by timeout when positive.
func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return base, func() {}
	}
	return context.WithTimeout(base, timeout)
}
