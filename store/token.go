package store

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenRecord is the persisted side of an issued refresh token.
type RefreshTokenRecord struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	TokenID     string
	ExpiresAt   time.Time
	Revoked     bool
	RevokedAt   time.Time
	RememberMe  bool
	DeviceInfo  string
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

// Active reports whether the record is neither revoked nor expired at now.
func (r *RefreshTokenRecord) Active(now time.Time) bool {
	return r != nil && !r.Revoked && now.Before(r.ExpiresAt)
}
