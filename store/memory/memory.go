// Package memory provides mutex-guarded in-process implementations of the
// store contracts. Records are copied on the way in and out so callers never
// share memory with the store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// Credentials is an in-memory [store.CredentialStore] and [store.PhoneDirectory].
type Credentials struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*store.Principal
	byEmail map[string]uuid.UUID
	byPhone map[string]uuid.UUID
}

// NewCredentials returns an empty credential store.
func NewCredentials() *Credentials {
	return &Credentials{
		byID:    make(map[uuid.UUID]*store.Principal),
		byEmail: make(map[string]uuid.UUID),
		byPhone: make(map[string]uuid.UUID),
	}
}

// Put inserts or replaces p wholesale. It is a seeding helper; engine writes
// go through the targeted methods.
func (c *Credentials) Put(p *store.Principal) error {
	if p == nil || p.ID == uuid.Nil {
		return store.ErrNotFound
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byEmail[email]; ok && id != p.ID {
		return store.ErrConflict
	}
	if old, ok := c.byID[p.ID]; ok {
		delete(c.byEmail, strings.ToLower(old.Email))
		delete(c.byPhone, old.PhoneNumber)
	}
	cp := p.Clone()
	cp.Email = email
	c.byID[p.ID] = cp
	c.byEmail[email] = p.ID
	if p.PhoneNumber != "" {
		c.byPhone[p.PhoneNumber] = p.ID
	}
	return nil
}

// FindByIdentifier looks a principal up by email, case-insensitively.
func (c *Credentials) FindByIdentifier(_ context.Context, email string) (*store.Principal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.byID[id].Clone(), nil
}

// FindByPhone looks a principal up by exact phone number.
func (c *Credentials) FindByPhone(_ context.Context, phone string) (*store.Principal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byPhone[strings.TrimSpace(phone)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.byID[id].Clone(), nil
}

// FindByID looks a principal up by id.
func (c *Credentials) FindByID(_ context.Context, id uuid.UUID) (*store.Principal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

// update runs fn on the stored principal under the write lock.
func (c *Credentials) update(id uuid.UUID, fn func(p *store.Principal)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(cur)
	return nil
}

// RecordFailure increments the stored counter and starts a lockout at the
// threshold.
func (c *Credentials) RecordFailure(_ context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockout time.Duration) (store.LockoutState, bool, error) {
	var (
		state     store.LockoutState
		lockedNow bool
	)
	err := c.update(id, func(p *store.Principal) {
		lockedNow = p.Lockout.RecordFailure(now, maxAttempts, lockout)
		p.UpdatedAt = now
		state = p.Lockout
	})
	return state, lockedNow, err
}

// RecordLogin applies the bookkeeping of a successful login.
func (c *Credentials) RecordLogin(_ context.Context, id uuid.UUID, u store.LoginUpdate) error {
	return c.update(id, func(p *store.Principal) { p.RecordLogin(u) })
}

// ResetLockout clears the counter and deadline.
func (c *Credentials) ResetLockout(_ context.Context, id uuid.UUID, now time.Time) error {
	return c.update(id, func(p *store.Principal) {
		p.Lockout.Reset()
		p.UpdatedAt = now
	})
}

// SetActive writes the active flag.
func (c *Credentials) SetActive(_ context.Context, id uuid.UUID, active bool, now time.Time) error {
	return c.update(id, func(p *store.Principal) {
		p.Active = active
		p.UpdatedAt = now
	})
}

// Ledger is an in-memory [store.AttemptLedger] and [store.AttemptPruner].
type Ledger struct {
	mu   sync.RWMutex
	rows []store.LoginAttempt
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Append records one attempt.
func (l *Ledger) Append(_ context.Context, a store.LoginAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PrincipalID != nil {
		id := *a.PrincipalID
		a.PrincipalID = &id
	}
	l.mu.Lock()
	l.rows = append(l.rows, a)
	l.mu.Unlock()
	return nil
}

// CountFailedSince counts failed rows for identifier newer than since.
func (l *Ledger) CountFailedSince(_ context.Context, identifier string, since time.Time) (int, error) {
	return l.count(func(a store.LoginAttempt) bool { return a.Identifier == identifier }, since), nil
}

// CountFailedByIPSince counts failed rows originating from ip newer than since.
func (l *Ledger) CountFailedByIPSince(_ context.Context, ip string, since time.Time) (int, error) {
	return l.count(func(a store.LoginAttempt) bool { return a.IPAddress == ip }, since), nil
}

func (l *Ledger) count(match func(store.LoginAttempt) bool, since time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, a := range l.rows {
		if a.Outcome.CountsAsFailure() && a.CreatedAt.After(since) && match(a) {
			n++
		}
	}
	return n
}

// DeleteAttemptsBefore drops rows created before the cutoff.
func (l *Ledger) DeleteAttemptsBefore(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.rows[:0]
	var removed int64
	for _, a := range l.rows {
		if a.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	l.rows = kept
	return removed, nil
}

// Attempts returns a snapshot of all rows in append order.
func (l *Ledger) Attempts() []store.LoginAttempt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]store.LoginAttempt, len(l.rows))
	copy(out, l.rows)
	return out
}

// Tokens is an in-memory [store.TokenStore] and [store.TokenPruner].
type Tokens struct {
	mu     sync.Mutex
	byHash map[string]*store.RefreshTokenRecord
}

// NewTokens returns an empty token store.
func NewTokens() *Tokens {
	return &Tokens{byHash: make(map[string]*store.RefreshTokenRecord)}
}

// Save inserts a record. Duplicate hashes are rejected.
func (t *Tokens) Save(_ context.Context, rec store.RefreshTokenRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(rec)
}

func (t *Tokens) insertLocked(rec store.RefreshTokenRecord) error {
	if _, ok := t.byHash[rec.TokenHash]; ok {
		return store.ErrConflict
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	t.byHash[rec.TokenHash] = &rec
	return nil
}

// FindByHash returns a copy of the record with the given fingerprint.
func (t *Tokens) FindByHash(_ context.Context, hash string) (*store.RefreshTokenRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.byHash[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// RevokeByHash marks one record revoked.
func (t *Tokens) RevokeByHash(_ context.Context, hash string, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.byHash[hash]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	rec.RevokedAt = now
	return true, nil
}

// RevokeAllForPrincipal marks every unrevoked record of the principal revoked.
func (t *Tokens) RevokeAllForPrincipal(_ context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for _, rec := range t.byHash {
		if rec.PrincipalID == principalID && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedAt = now
			n++
		}
	}
	return n, nil
}

// CountActiveForPrincipal counts unrevoked, unexpired records.
func (t *Tokens) CountActiveForPrincipal(_ context.Context, principalID uuid.UUID, now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.byHash {
		if rec.PrincipalID == principalID && rec.Active(now) {
			n++
		}
	}
	return n, nil
}

// Rotate revokes the predecessor and inserts next under one lock.
func (t *Tokens) Rotate(_ context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.byHash[oldHash]
	if !ok || !old.Active(now) {
		return store.ErrTokenNotActive
	}
	if _, dup := t.byHash[next.TokenHash]; dup {
		return store.ErrConflict
	}
	old.Revoked = true
	old.RevokedAt = now
	return t.insertLocked(next)
}

// DeleteExpiredBefore removes records whose expiry precedes the cutoff.
func (t *Tokens) DeleteExpiredBefore(_ context.Context, before time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for h, rec := range t.byHash {
		if rec.ExpiresAt.Before(before) {
			delete(t.byHash, h)
			n++
		}
	}
	return n, nil
}

var (
	_ store.CredentialStore = (*Credentials)(nil)
	_ store.PhoneDirectory  = (*Credentials)(nil)
	_ store.AttemptLedger   = (*Ledger)(nil)
	_ store.AttemptPruner   = (*Ledger)(nil)
	_ store.TokenStore      = (*Tokens)(nil)
	_ store.TokenPruner     = (*Tokens)(nil)
)
