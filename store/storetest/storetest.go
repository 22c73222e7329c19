// Package storetest holds behavioral checks shared by every store backend.
// Backends call the Run functions from their own tests with a factory that
// returns fresh, empty stores.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Base is the reference instant used by all checks. Backends that keep
// timestamps at lower precision still round-trip it exactly.
var Base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewPrincipal returns a seeded active principal.
func NewPrincipal(email string) *store.Principal {
	return &store.Principal{
		ID:                 uuid.New(),
		Email:              email,
		PhoneNumber:        "+15550001111",
		FirstName:          "Grace",
		LastName:           "Hopper",
		Specialization:     "cardiology",
		VerificationStatus: "VERIFIED",
		Role:               store.DefaultRole,
		PasswordHash:       "hash",
		Active:             true,
		EmailVerified:      true,
		CreatedAt:          Base,
		UpdatedAt:          Base,
	}
}

// CredentialFactory returns an empty credential store and a seeding func.
type CredentialFactory func(t *testing.T) (store.CredentialStore, func(*store.Principal))

// RunCredentialStore checks lookup and the targeted principal writes.
func RunCredentialStore(t *testing.T, factory CredentialFactory) {
	ctx := context.Background()

	t.Run("lookup", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("grace@example.com")
		seed(p)

		got, err := cs.FindByIdentifier(ctx, "grace@example.com")
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
		require.Equal(t, "Grace", got.FirstName)

		got, err = cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, p.Email, got.Email)

		_, err = cs.FindByIdentifier(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = cs.FindByID(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("phone", func(t *testing.T) {
		cs, seed := factory(t)
		dir, ok := cs.(store.PhoneDirectory)
		if !ok {
			t.Skip("backend has no phone directory")
		}
		p := NewPrincipal("phone@example.com")
		seed(p)
		got, err := dir.FindByPhone(ctx, p.PhoneNumber)
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
	})

	t.Run("failures lock at threshold", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("lock@example.com")
		seed(p)

		for i := 1; i <= 3; i++ {
			state, lockedNow, err := cs.RecordFailure(ctx, p.ID, Base, 3, 30*time.Minute)
			require.NoError(t, err)
			require.Equal(t, i, state.FailedAttempts())
			require.Equal(t, i == 3, lockedNow)
		}
		got, err := cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 3, got.Lockout.FailedAttempts())
		require.True(t, got.Lockout.LockedUntil().Equal(Base.Add(30*time.Minute)))

		// A failure racing past the lock check never restarts the lockout.
		state, lockedNow, err := cs.RecordFailure(ctx, p.ID, Base.Add(time.Minute), 3, 30*time.Minute)
		require.NoError(t, err)
		require.False(t, lockedNow)
		require.Equal(t, 4, state.FailedAttempts())
		require.True(t, state.LockedUntil().Equal(Base.Add(30*time.Minute)))
	})

	t.Run("failure keeps a disable that landed after the read", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("disable@example.com")
		seed(p)

		read, err := cs.FindByIdentifier(ctx, p.Email)
		require.NoError(t, err)
		require.True(t, read.Active)

		require.NoError(t, cs.SetActive(ctx, p.ID, false, Base))
		_, _, err = cs.RecordFailure(ctx, read.ID, Base, 5, time.Minute)
		require.NoError(t, err)

		got, err := cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.False(t, got.Active)
		require.Equal(t, 1, got.Lockout.FailedAttempts())
	})

	t.Run("active flag leaves the counter alone", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("counter@example.com")
		seed(p)

		for i := 0; i < 2; i++ {
			_, _, err := cs.RecordFailure(ctx, p.ID, Base, 5, time.Minute)
			require.NoError(t, err)
		}
		require.NoError(t, cs.SetActive(ctx, p.ID, false, Base))
		require.NoError(t, cs.SetActive(ctx, p.ID, true, Base))

		got, err := cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.True(t, got.Active)
		require.Equal(t, 2, got.Lockout.FailedAttempts())
	})

	t.Run("concurrent failures all count", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("burst@example.com")
		seed(p)

		const n = 12
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := cs.RecordFailure(ctx, p.ID, Base, 100, time.Minute)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		got, err := cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, n, got.Lockout.FailedAttempts())
	})

	t.Run("login and unlock reset", func(t *testing.T) {
		cs, seed := factory(t)
		p := NewPrincipal("reset@example.com")
		seed(p)

		for i := 0; i < 3; i++ {
			_, _, err := cs.RecordFailure(ctx, p.ID, Base, 3, time.Hour)
			require.NoError(t, err)
		}
		require.NoError(t, cs.ResetLockout(ctx, p.ID, Base))
		got, err := cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Zero(t, got.Lockout.FailedAttempts())
		require.True(t, got.Lockout.LockedUntil().IsZero())

		_, _, err = cs.RecordFailure(ctx, p.ID, Base, 3, time.Hour)
		require.NoError(t, err)
		require.NoError(t, cs.RecordLogin(ctx, p.ID, store.LoginUpdate{
			At: Base.Add(time.Minute), ActiveSessions: 2, PasswordHash: "upgraded", PreviousHash: p.PasswordHash,
		}))
		// An upgrade computed from an older hash is dropped.
		require.NoError(t, cs.RecordLogin(ctx, p.ID, store.LoginUpdate{
			At: Base.Add(2 * time.Minute), ActiveSessions: 3, PasswordHash: "stale-upgrade", PreviousHash: p.PasswordHash,
		}))

		got, err = cs.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.Zero(t, got.Lockout.FailedAttempts())
		require.True(t, got.Lockout.LockedUntil().IsZero())
		require.Equal(t, 2, got.LoginCount)
		require.Equal(t, 3, got.ConcurrentSessions)
		require.Equal(t, "upgraded", got.PasswordHash)
		require.True(t, got.LastLogin.Equal(Base.Add(2*time.Minute)))
		require.True(t, got.Active)
	})

	t.Run("unknown id", func(t *testing.T) {
		cs, _ := factory(t)
		id := uuid.New()
		_, _, err := cs.RecordFailure(ctx, id, Base, 3, time.Minute)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, cs.RecordLogin(ctx, id, store.LoginUpdate{At: Base}), store.ErrNotFound)
		require.ErrorIs(t, cs.ResetLockout(ctx, id, Base), store.ErrNotFound)
		require.ErrorIs(t, cs.SetActive(ctx, id, false, Base), store.ErrNotFound)
	})
}

// RunAttemptLedger checks append, windowed counting and pruning.
func RunAttemptLedger(t *testing.T, factory func(t *testing.T) store.AttemptLedger) {
	ctx := context.Background()
	l := factory(t)
	pid := uuid.New()

	rows := []store.LoginAttempt{
		{Identifier: "a@x.io", IPAddress: "10.0.0.1", Outcome: store.OutcomeFailed, FailureReason: store.ReasonInvalidPassword, CreatedAt: Base.Add(-20 * time.Minute)},
		{Identifier: "a@x.io", IPAddress: "10.0.0.1", Outcome: store.OutcomeFailed, FailureReason: store.ReasonInvalidPassword, CreatedAt: Base.Add(-5 * time.Minute)},
		{Identifier: "a@x.io", IPAddress: "10.0.0.2", Outcome: store.OutcomeLocked, FailureReason: store.ReasonAccountLocked, CreatedAt: Base.Add(-4 * time.Minute)},
		{Identifier: "a@x.io", IPAddress: "10.0.0.1", Outcome: store.OutcomeSuccess, PrincipalID: &pid, CreatedAt: Base.Add(-3 * time.Minute)},
		{Identifier: "a@x.io", IPAddress: "10.0.0.1", Outcome: store.OutcomeAccountDisabled, FailureReason: store.ReasonAccountDisabled, CreatedAt: Base.Add(-2 * time.Minute)},
		{Identifier: "b@x.io", IPAddress: "10.0.0.1", Outcome: store.OutcomeFailed, FailureReason: store.ReasonAccountNotFound, CreatedAt: Base.Add(-time.Minute)},
	}
	for _, r := range rows {
		require.NoError(t, l.Append(ctx, r))
	}

	since := Base.Add(-15 * time.Minute)
	n, err := l.CountFailedSince(ctx, "a@x.io", since)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = l.CountFailedByIPSince(ctx, "10.0.0.1", since)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = l.CountFailedSince(ctx, "missing@x.io", since)
	require.NoError(t, err)
	require.Zero(t, n)

	pruner, ok := l.(store.AttemptPruner)
	if !ok {
		return
	}
	removed, err := pruner.DeleteAttemptsBefore(ctx, Base.Add(-10*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	n, err = l.CountFailedSince(ctx, "a@x.io", Base.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// NewRecord returns an active refresh record for principal.
func NewRecord(principal uuid.UUID, hash string, expires time.Time) store.RefreshTokenRecord {
	return store.RefreshTokenRecord{
		ID:          uuid.New(),
		PrincipalID: principal,
		TokenHash:   hash,
		TokenID:     uuid.NewString(),
		ExpiresAt:   expires,
		DeviceInfo:  "laptop",
		IPAddress:   "10.0.0.1",
		UserAgent:   "test-agent",
		CreatedAt:   Base,
	}
}

// RunTokenStore checks persistence, revocation and rotation semantics.
func RunTokenStore(t *testing.T, factory func(t *testing.T) store.TokenStore) {
	ctx := context.Background()
	now := Base

	t.Run("save and find", func(t *testing.T) {
		ts := factory(t)
		pid := uuid.New()
		rec := NewRecord(pid, "h-save", now.Add(time.Hour))
		rec.RememberMe = true
		require.NoError(t, ts.Save(ctx, rec))

		got, err := ts.FindByHash(ctx, "h-save")
		require.NoError(t, err)
		require.Equal(t, pid, got.PrincipalID)
		require.Equal(t, rec.TokenID, got.TokenID)
		require.True(t, got.RememberMe)
		require.Equal(t, "laptop", got.DeviceInfo)
		require.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
		require.True(t, got.Active(now))

		_, err = ts.FindByHash(ctx, "h-missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		ts := factory(t)
		require.NoError(t, ts.Save(ctx, NewRecord(uuid.New(), "h-rev", now.Add(time.Hour))))

		changed, err := ts.RevokeByHash(ctx, "h-rev", now)
		require.NoError(t, err)
		require.True(t, changed)

		changed, err = ts.RevokeByHash(ctx, "h-rev", now)
		require.NoError(t, err)
		require.False(t, changed)

		changed, err = ts.RevokeByHash(ctx, "h-none", now)
		require.NoError(t, err)
		require.False(t, changed)

		got, err := ts.FindByHash(ctx, "h-rev")
		require.NoError(t, err)
		require.True(t, got.Revoked)
		require.False(t, got.Active(now))
	})

	t.Run("revoke all and count", func(t *testing.T) {
		ts := factory(t)
		pid, other := uuid.New(), uuid.New()
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-a1", now.Add(time.Hour))))
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-a2", now.Add(time.Hour))))
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-a3", now.Add(-time.Minute))))
		require.NoError(t, ts.Save(ctx, NewRecord(other, "h-b1", now.Add(time.Hour))))

		n, err := ts.CountActiveForPrincipal(ctx, pid, now)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		revoked, err := ts.RevokeAllForPrincipal(ctx, pid, now)
		require.NoError(t, err)
		require.EqualValues(t, 3, revoked)

		n, err = ts.CountActiveForPrincipal(ctx, pid, now)
		require.NoError(t, err)
		require.Zero(t, n)

		n, err = ts.CountActiveForPrincipal(ctx, other, now)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("rotate is single use", func(t *testing.T) {
		ts := factory(t)
		pid := uuid.New()
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-old", now.Add(time.Hour))))

		require.NoError(t, ts.Rotate(ctx, "h-old", NewRecord(pid, "h-new", now.Add(2*time.Hour)), now))

		old, err := ts.FindByHash(ctx, "h-old")
		require.NoError(t, err)
		require.True(t, old.Revoked)

		next, err := ts.FindByHash(ctx, "h-new")
		require.NoError(t, err)
		require.True(t, next.Active(now))

		err = ts.Rotate(ctx, "h-old", NewRecord(pid, "h-new2", now.Add(2*time.Hour)), now)
		require.ErrorIs(t, err, store.ErrTokenNotActive)
		_, err = ts.FindByHash(ctx, "h-new2")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rotate rejects expired and missing", func(t *testing.T) {
		ts := factory(t)
		pid := uuid.New()
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-exp", now.Add(-time.Second))))

		err := ts.Rotate(ctx, "h-exp", NewRecord(pid, "h-x1", now.Add(time.Hour)), now)
		require.ErrorIs(t, err, store.ErrTokenNotActive)
		err = ts.Rotate(ctx, "h-nothing", NewRecord(pid, "h-x2", now.Add(time.Hour)), now)
		require.ErrorIs(t, err, store.ErrTokenNotActive)

		n, err := ts.CountActiveForPrincipal(ctx, pid, now)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("concurrent rotate has one winner", func(t *testing.T) {
		ts := factory(t)
		pid := uuid.New()
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-race", now.Add(time.Hour))))

		const workers = 8
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			wins   int
			others []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := NewRecord(pid, "h-race-"+string(rune('a'+i)), now.Add(time.Hour))
				err := ts.Rotate(ctx, "h-race", next, now)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
					return
				}
				if !errors.Is(err, store.ErrTokenNotActive) {
					others = append(others, err)
				}
			}(i)
		}
		wg.Wait()
		require.Empty(t, others)
		require.Equal(t, 1, wins)

		n, err := ts.CountActiveForPrincipal(ctx, pid, now)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("prune expired", func(t *testing.T) {
		ts := factory(t)
		pruner, ok := ts.(store.TokenPruner)
		if !ok {
			t.Skip("backend prunes by TTL")
		}
		pid := uuid.New()
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-p1", now.Add(-48*time.Hour))))
		require.NoError(t, ts.Save(ctx, NewRecord(pid, "h-p2", now.Add(time.Hour))))

		n, err := pruner.DeleteExpiredBefore(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = ts.FindByHash(ctx, "h-p1")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = ts.FindByHash(ctx, "h-p2")
		require.NoError(t, err)
	})
}
