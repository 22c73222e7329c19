package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// AccountDeps captures admin account-maintenance dependencies.
type AccountDeps struct {
	Now         func() time.Time
	Credentials store.CredentialStore
	Tokens      store.TokenStore
}

// RunUnlockAccount clears the lockout state of principalID.
func RunUnlockAccount(ctx context.Context, principalID uuid.UUID, deps AccountDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return deps.Credentials.ResetLockout(ctx, principalID, deps.Now())
}

// ErrSessionInvalidation is joined to the store error when a disabled
// account's sessions could not be revoked.
var ErrSessionInvalidation = errors.New("session invalidation failed")

// RunSetAccountActive writes the active flag and nothing else. Disabling an
// account also revokes all of its refresh tokens, even when it was already
// disabled.
func RunSetAccountActive(ctx context.Context, principalID uuid.UUID, active bool, deps AccountDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	now := deps.Now()
	if err := deps.Credentials.SetActive(ctx, principalID, active, now); err != nil {
		return err
	}
	if active {
		return nil
	}
	if _, err := deps.Tokens.RevokeAllForPrincipal(ctx, principalID, now); err != nil {
		return errors.Join(ErrSessionInvalidation, err)
	}
	return nil
}
