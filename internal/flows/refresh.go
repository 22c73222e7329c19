package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
// The engine collapses all of them into one public outcome; the kinds exist
// for logs and metrics.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailurePrincipalNotFound
	RefreshFailurePrincipalStatus
	RefreshFailureRecordNotFound
	RefreshFailureRecordInactive
	RefreshFailureOwnerMismatch
	RefreshFailureReuse
	RefreshFailureIssue
	RefreshFailureStore
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureDecode:
		return "decode"
	case RefreshFailurePrincipalNotFound:
		return "principal_not_found"
	case RefreshFailurePrincipalStatus:
		return "principal_status"
	case RefreshFailureRecordNotFound:
		return "record_not_found"
	case RefreshFailureRecordInactive:
		return "record_inactive"
	case RefreshFailureOwnerMismatch:
		return "owner_mismatch"
	case RefreshFailureReuse:
		return "reuse"
	case RefreshFailureIssue:
		return "issue"
	case RefreshFailureStore:
		return "store"
	default:
		return "unknown"
	}
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	PrincipalID string
	Principal   *store.Principal
	Access      jwt.Issued
	Refresh     jwt.Issued
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
	StoreTimeout  time.Duration

	Now   func() time.Time
	NewID func() uuid.UUID

	Credentials store.CredentialStore
	Tokens      store.TokenStore

	ParseRefresh func(token string) (*jwt.Claims, error)
	IssueAccess  func(p *store.Principal, ttl time.Duration) (jwt.Issued, error)
	IssueRefresh func(principalID uuid.UUID, ttl time.Duration) (jwt.Issued, error)
	HashToken    func(token string) string
}

// RunRefresh validates a refresh token against its stored record and rotates
// it. The predecessor is revoked in the same store operation that creates the
// successor.
func RunRefresh(ctx context.Context, refreshToken, ip string, deps RefreshDeps) RefreshResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.New
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	res := RefreshResult{PrincipalID: claims.UID}

	principalID, err := uuid.Parse(claims.UID)
	if err != nil {
		return failRefresh(res, RefreshFailureDecode, err)
	}
	p, err := deps.Credentials.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failRefresh(res, RefreshFailurePrincipalNotFound, err)
		}
		return failRefresh(res, RefreshFailureStore, err)
	}
	res.Principal = p
	if !p.Active || !p.EmailVerified {
		return failRefresh(res, RefreshFailurePrincipalStatus, nil)
	}

	now := deps.Now()
	hash := deps.HashToken(refreshToken)
	prev, err := deps.Tokens.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failRefresh(res, RefreshFailureRecordNotFound, err)
		}
		return failRefresh(res, RefreshFailureStore, err)
	}
	if !prev.Active(now) {
		return failRefresh(res, RefreshFailureRecordInactive, nil)
	}
	if prev.PrincipalID != p.ID {
		return failRefresh(res, RefreshFailureOwnerMismatch, nil)
	}

	refreshTTL := deps.RefreshTTL
	if prev.RememberMe {
		refreshTTL = deps.RememberMeTTL
	}
	access, err := deps.IssueAccess(p, deps.AccessTTL)
	if err != nil {
		return failRefresh(res, RefreshFailureIssue, err)
	}
	refresh, err := deps.IssueRefresh(p.ID, refreshTTL)
	if err != nil {
		return failRefresh(res, RefreshFailureIssue, err)
	}

	next := store.RefreshTokenRecord{
		ID:          deps.NewID(),
		PrincipalID: p.ID,
		TokenHash:   deps.HashToken(refresh.Token),
		TokenID:     refresh.ID,
		ExpiresAt:   refresh.ExpiresAt,
		RememberMe:  prev.RememberMe,
		DeviceInfo:  prev.DeviceInfo,
		IPAddress:   ip,
		UserAgent:   prev.UserAgent,
		CreatedAt:   now,
	}

	bctx, cancel := detach(ctx, deps.StoreTimeout)
	defer cancel()
	if err := deps.Tokens.Rotate(bctx, hash, next, now); err != nil {
		if errors.Is(err, store.ErrTokenNotActive) {
			return failRefresh(res, RefreshFailureReuse, err)
		}
		return failRefresh(res, RefreshFailureStore, err)
	}

	res.Access = access
	res.Refresh = refresh
	return res
}

func failRefresh(res RefreshResult, kind RefreshFailureKind, err error) RefreshResult {
	res.Failure = kind
	res.Err = err
	return res
}
