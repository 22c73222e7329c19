package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Now          func() time.Time
	Tokens       store.TokenStore
	ParseRefresh func(token string) (*jwt.Claims, error)
	HashToken    func(token string) string
}

// LogoutResult reports what a logout did. Changed is false when the record
// was missing or already revoked.
type LogoutResult struct {
	PrincipalID string
	Changed     bool
	Err         error
}

// RunLogout revokes the stored record of a valid, unexpired refresh token.
// Tokens that do not parse leave the store untouched.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Err: err}
	}
	changed, err := deps.Tokens.RevokeByHash(ctx, deps.HashToken(refreshToken), deps.Now())
	return LogoutResult{
		PrincipalID: claims.UID,
		Changed:     changed,
		Err:         err,
	}
}

// RunLogoutAll revokes every refresh-token record owned by principalID.
func RunLogoutAll(ctx context.Context, principalID uuid.UUID, deps LogoutDeps) (int64, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return deps.Tokens.RevokeAllForPrincipal(ctx, principalID, deps.Now())
}
