package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("store: not found")
	// ErrTokenNotActive is returned by Rotate when the predecessor record is
	// missing, revoked, or expired. No successor is written in that case.
	ErrTokenNotActive = errors.New("store: refresh token not active")
	// ErrConflict is returned when an insert collides with a unique key.
	ErrConflict = errors.New("store: conflict")
)

// CredentialStore holds principal records.
//
// Writes are targeted. Each method changes only the columns it names and
// applies the change to the stored row, never to a copy the caller read
// earlier, so a writer holding a stale read can neither revive a disabled
// account nor lower the failed-attempt counter. Unknown ids report
// [ErrNotFound].
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, email string) (*Principal, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	// RecordFailure applies [LockoutState.RecordFailure] to the stored
	// counter and deadline as one unit and returns the resulting state.
	// lockedNow is true when this call started the lockout.
	RecordFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockout time.Duration) (state LockoutState, lockedNow bool, err error)
	// RecordLogin applies [Principal.RecordLogin] to the stored row.
	RecordLogin(ctx context.Context, id uuid.UUID, u LoginUpdate) error
	// ResetLockout clears the counter and the deadline.
	ResetLockout(ctx context.Context, id uuid.UUID, now time.Time) error
	// SetActive writes the active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error
}

// PhoneDirectory is an optional CredentialStore extension for phone-number
// identifiers.
type PhoneDirectory interface {
	FindByPhone(ctx context.Context, phone string) (*Principal, error)
}

// AttemptLedger is the append-only audit of login attempts.
//
// The Count methods only consider rows whose outcome
// [Outcome.CountsAsFailure] and whose CreatedAt is strictly after since.
type AttemptLedger interface {
	Append(ctx context.Context, attempt LoginAttempt) error
	CountFailedSince(ctx context.Context, identifier string, since time.Time) (int, error)
	CountFailedByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
}

// TokenStore holds refresh-token records keyed by token fingerprint.
type TokenStore interface {
	Save(ctx context.Context, rec RefreshTokenRecord) error
	FindByHash(ctx context.Context, hash string) (*RefreshTokenRecord, error)
	// RevokeByHash marks the record revoked. changed is false when the
	// record does not exist or was already revoked.
	RevokeByHash(ctx context.Context, hash string, now time.Time) (changed bool, err error)
	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error)
	CountActiveForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int, error)
	// Rotate revokes the active record identified by oldHash and saves next
	// in the same unit of work. It returns ErrTokenNotActive and writes
	// nothing when the predecessor is not active at now.
	Rotate(ctx context.Context, oldHash string, next RefreshTokenRecord, now time.Time) error
}

// TokenPruner deletes refresh-token records that expired before the cutoff.
type TokenPruner interface {
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// AttemptPruner deletes ledger rows created before the cutoff.
type AttemptPruner interface {
	DeleteAttemptsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Pinger is implemented by stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}
