package store

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRole is the single role claim carried by provider access tokens.
const DefaultRole = "healthcare_provider"

// Principal is a registered provider account.
type Principal struct {
	ID                 uuid.UUID
	Email              string
	PhoneNumber        string
	FirstName          string
	LastName           string
	Specialization     string
	VerificationStatus string
	Role               string
	PasswordHash       string
	Active             bool
	EmailVerified      bool
	Lockout            LockoutState
	LoginCount         int
	LastLogin          time.Time
	ConcurrentSessions int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name.
func (p *Principal) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// RoleOrDefault returns the stored role, or [DefaultRole] when unset.
func (p *Principal) RoleOrDefault() string {
	if p.Role == "" {
		return DefaultRole
	}
	return p.Role
}

// LoginUpdate is the bookkeeping of one successful login, applied by
// [CredentialStore.RecordLogin].
type LoginUpdate struct {
	At             time.Time
	ActiveSessions int
	// PasswordHash replaces the stored hash only while the stored hash still
	// equals PreviousHash. Empty leaves the hash alone.
	PasswordHash string
	PreviousHash string
}

// RecordLogin applies u: the lockout state is reset, the login count
// advances, and the session counter is set to u.ActiveSessions.
func (p *Principal) RecordLogin(u LoginUpdate) {
	p.Lockout.Reset()
	p.LoginCount++
	if u.At.After(p.LastLogin) {
		p.LastLogin = u.At
	}
	sessions := u.ActiveSessions
	if sessions < 0 {
		sessions = 0
	}
	p.ConcurrentSessions = sessions
	if u.PasswordHash != "" && p.PasswordHash == u.PreviousHash {
		p.PasswordHash = u.PasswordHash
	}
	p.UpdatedAt = u.At
}

// Clone returns a copy safe to mutate independently.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// LockoutState carries the failed-attempt counter and the lockout deadline.
// The fields are only reachable through increment and reset operations so the
// counter invariants hold wherever a Principal travels.
type LockoutState struct {
	failed      int
	lockedUntil time.Time
}

// RestoreLockout rebuilds a LockoutState from persisted columns. It exists for
// store implementations; everything else mutates state through RecordFailure
// and Reset only.
func RestoreLockout(failed int, lockedUntil time.Time) LockoutState {
	if failed < 0 {
		failed = 0
	}
	return LockoutState{failed: failed, lockedUntil: lockedUntil}
}

// FailedAttempts returns the consecutive failed-attempt count.
func (l LockoutState) FailedAttempts() int { return l.failed }

// LockedUntil returns the lockout deadline. The zero time means not locked.
func (l LockoutState) LockedUntil() time.Time { return l.lockedUntil }

// IsLocked reports whether the lockout deadline is still in the future.
func (l LockoutState) IsLocked(now time.Time) bool {
	return !l.lockedUntil.IsZero() && now.Before(l.lockedUntil)
}

// RecordFailure increments the counter. When the incremented counter reaches
// maxAttempts and no lockout is running at now, the deadline is set to
// now+duration and true is returned. A running lockout is never extended.
func (l *LockoutState) RecordFailure(now time.Time, maxAttempts int, duration time.Duration) bool {
	l.failed++
	if maxAttempts > 0 && l.failed >= maxAttempts && !l.IsLocked(now) {
		l.lockedUntil = now.Add(duration)
		return true
	}
	return false
}

// Reset clears the counter and the deadline.
func (l *LockoutState) Reset() {
	l.failed = 0
	l.lockedUntil = time.Time{}
}
