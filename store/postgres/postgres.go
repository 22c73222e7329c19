// Package postgres implements the store contracts on PostgreSQL through
// pgx/v5. Refresh-token rotation runs inside a single transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool used by [Store].
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// NewPool parses url, opens a pool, and pings it.
func NewPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Schema creates the tables used by [Store].
const Schema = `
CREATE TABLE IF NOT EXISTS providers (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	phone_number TEXT,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	specialization TEXT NOT NULL DEFAULT '',
	verification_status TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true,
	email_verified BOOLEAN NOT NULL DEFAULT false,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until TIMESTAMPTZ,
	login_count INTEGER NOT NULL DEFAULT 0,
	last_login TIMESTAMPTZ,
	concurrent_sessions INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_providers_phone ON providers(phone_number);

CREATE TABLE IF NOT EXISTS login_attempts (
	id UUID PRIMARY KEY,
	provider_id UUID,
	identifier TEXT NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_identifier ON login_attempts(identifier, created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_ip ON login_attempts(ip_address, created_at);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id UUID PRIMARY KEY,
	provider_id UUID NOT NULL,
	token_hash TEXT NOT NULL UNIQUE,
	token_id TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked BOOLEAN NOT NULL DEFAULT false,
	revoked_at TIMESTAMPTZ,
	remember_me BOOLEAN NOT NULL DEFAULT false,
	device_info TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_provider ON refresh_tokens(provider_id) WHERE NOT revoked;
`

// Migrate applies [Schema].
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Store implements the credential and ledger contracts. Use [Store.Tokens]
// for the token contract.
type Store struct {
	db DB
}

// New returns a Store over db.
func New(db DB) *Store {
	return &Store{db: db}
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Insert adds a principal row.
func (s *Store) Insert(ctx context.Context, p *store.Principal) error {
	var phone *string
	if p.PhoneNumber != "" {
		phone = &p.PhoneNumber
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO providers (id, email, phone_number, first_name, last_name, specialization,
	verification_status, role, password_hash, active, email_verified, failed_login_attempts,
	locked_until, login_count, last_login, concurrent_sessions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, strings.ToLower(p.Email), phone, p.FirstName, p.LastName, p.Specialization,
		p.VerificationStatus, p.Role, p.PasswordHash, p.Active, p.EmailVerified,
		p.Lockout.FailedAttempts(), nullTime(p.Lockout.LockedUntil()), p.LoginCount,
		nullTime(p.LastLogin), p.ConcurrentSessions, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert provider: %w", err)
	}
	return nil
}

const selectPrincipal = `
SELECT id, email, COALESCE(phone_number, ''), first_name, last_name, specialization,
	verification_status, role, password_hash, active, email_verified, failed_login_attempts,
	locked_until, login_count, last_login, concurrent_sessions, created_at, updated_at
FROM providers`

func scanPrincipal(row pgx.Row) (*store.Principal, error) {
	var (
		p                      store.Principal
		failed                 int
		lockedUntil, lastLogin *time.Time
	)
	err := row.Scan(&p.ID, &p.Email, &p.PhoneNumber, &p.FirstName, &p.LastName, &p.Specialization,
		&p.VerificationStatus, &p.Role, &p.PasswordHash, &p.Active, &p.EmailVerified, &failed,
		&lockedUntil, &p.LoginCount, &lastLogin, &p.ConcurrentSessions, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan provider: %w", err)
	}
	p.Lockout = store.RestoreLockout(failed, derefTime(lockedUntil))
	p.LastLogin = derefTime(lastLogin)
	return &p, nil
}

// FindByIdentifier looks a principal up by email.
func (s *Store) FindByIdentifier(ctx context.Context, email string) (*store.Principal, error) {
	return scanPrincipal(s.db.QueryRow(ctx, selectPrincipal+` WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
}

// FindByPhone looks a principal up by phone number.
func (s *Store) FindByPhone(ctx context.Context, phone string) (*store.Principal, error) {
	return scanPrincipal(s.db.QueryRow(ctx, selectPrincipal+` WHERE phone_number = $1`,
		strings.TrimSpace(phone)))
}

// FindByID looks a principal up by id.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*store.Principal, error) {
	return scanPrincipal(s.db.QueryRow(ctx, selectPrincipal+` WHERE id = $1`, id))
}

func affectedOne(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordFailure increments the counter under a row lock, so concurrent
// failures for one principal serialize and each one counts.
func (s *Store) RecordFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockout time.Duration) (store.LockoutState, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return store.LockoutState{}, false, fmt.Errorf("postgres: begin record failure: %w", err)
	}
	var (
		failed      int
		lockedUntil *time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT failed_login_attempts, locked_until FROM providers WHERE id = $1 FOR UPDATE`, id).
		Scan(&failed, &lockedUntil)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.LockoutState{}, false, store.ErrNotFound
		}
		return store.LockoutState{}, false, fmt.Errorf("postgres: read lockout: %w", err)
	}

	state := store.RestoreLockout(failed, derefTime(lockedUntil))
	lockedNow := state.RecordFailure(now, maxAttempts, lockout)
	if _, err := tx.Exec(ctx,
		`UPDATE providers SET failed_login_attempts = $1, locked_until = $2, updated_at = $3 WHERE id = $4`,
		state.FailedAttempts(), nullTime(state.LockedUntil()), now, id); err != nil {
		_ = tx.Rollback(ctx)
		return store.LockoutState{}, false, fmt.Errorf("postgres: record failure: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return store.LockoutState{}, false, fmt.Errorf("postgres: commit record failure: %w", err)
	}
	return state, lockedNow, nil
}

// RecordLogin resets the lockout and advances the login statistics. A
// password upgrade lands only while the stored hash is still the one the
// login verified.
func (s *Store) RecordLogin(ctx context.Context, id uuid.UUID, u store.LoginUpdate) error {
	sessions := u.ActiveSessions
	if sessions < 0 {
		sessions = 0
	}
	tag, err := s.db.Exec(ctx, `
UPDATE providers SET
	failed_login_attempts = 0,
	locked_until = NULL,
	login_count = login_count + 1,
	last_login = GREATEST(last_login, $1::timestamptz),
	concurrent_sessions = $2,
	password_hash = CASE WHEN $3::text <> '' AND password_hash = $4::text THEN $3::text ELSE password_hash END,
	updated_at = $1
WHERE id = $5`,
		u.At, sessions, u.PasswordHash, u.PreviousHash, id)
	if err != nil {
		return fmt.Errorf("postgres: record login: %w", err)
	}
	return affectedOne(tag)
}

// ResetLockout clears the counter and deadline.
func (s *Store) ResetLockout(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE providers SET failed_login_attempts = 0, locked_until = NULL, updated_at = $1 WHERE id = $2`,
		now, id)
	if err != nil {
		return fmt.Errorf("postgres: reset lockout: %w", err)
	}
	return affectedOne(tag)
}

// SetActive writes the active flag.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE providers SET active = $1, updated_at = $2 WHERE id = $3`,
		active, now, id)
	if err != nil {
		return fmt.Errorf("postgres: set active: %w", err)
	}
	return affectedOne(tag)
}

// Append records one ledger row.
func (s *Store) Append(ctx context.Context, a store.LoginAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO login_attempts (id, provider_id, identifier, ip_address, user_agent, outcome, failure_reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.PrincipalID, a.Identifier, a.IPAddress, a.UserAgent, string(a.Outcome),
		string(a.FailureReason), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: append attempt: %w", err)
	}
	return nil
}

const failedOutcomes = `outcome IN ('` + string(store.OutcomeFailed) + `', '` + string(store.OutcomeLocked) + `')`

// CountFailedSince counts failed rows for identifier newer than since.
func (s *Store) CountFailedSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	return s.countFailed(ctx, "identifier", identifier, since)
}

// CountFailedByIPSince counts failed rows from ip newer than since.
func (s *Store) CountFailedByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	return s.countFailed(ctx, "ip_address", ip, since)
}

func (s *Store) countFailed(ctx context.Context, column, value string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE `+column+` = $1 AND created_at > $2 AND `+failedOutcomes,
		value, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count attempts: %w", err)
	}
	return n, nil
}

// DeleteAttemptsBefore prunes ledger rows created before the cutoff.
func (s *Store) DeleteAttemptsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM login_attempts WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Tokens returns the [store.TokenStore] over the same database.
func (s *Store) Tokens() *TokenStore { return &TokenStore{db: s.db} }

// TokenStore implements [store.TokenStore] and [store.TokenPruner].
type TokenStore struct {
	db DB
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertToken(ctx context.Context, db execer, rec store.RefreshTokenRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := db.Exec(ctx, `
INSERT INTO refresh_tokens (id, provider_id, token_hash, token_id, expires_at, revoked, revoked_at,
	remember_me, device_info, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.PrincipalID, rec.TokenHash, rec.TokenID, rec.ExpiresAt, rec.Revoked,
		nullTime(rec.RevokedAt), rec.RememberMe, rec.DeviceInfo, rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: insert refresh token: %w", err)
	}
	return nil
}

// Save inserts a refresh-token record.
func (t *TokenStore) Save(ctx context.Context, rec store.RefreshTokenRecord) error {
	return insertToken(ctx, t.db, rec)
}

// FindByHash returns the record with the given fingerprint.
func (t *TokenStore) FindByHash(ctx context.Context, hash string) (*store.RefreshTokenRecord, error) {
	var (
		rec       store.RefreshTokenRecord
		revokedAt *time.Time
	)
	err := t.db.QueryRow(ctx, `
SELECT id, provider_id, token_hash, token_id, expires_at, revoked, revoked_at, remember_me,
	device_info, ip_address, user_agent, created_at
FROM refresh_tokens WHERE token_hash = $1`, hash).Scan(
		&rec.ID, &rec.PrincipalID, &rec.TokenHash, &rec.TokenID, &rec.ExpiresAt, &rec.Revoked,
		&revokedAt, &rec.RememberMe, &rec.DeviceInfo, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find refresh token: %w", err)
	}
	rec.RevokedAt = derefTime(revokedAt)
	return &rec, nil
}

// RevokeByHash revokes one unrevoked record.
func (t *TokenStore) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	tag, err := t.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1 WHERE token_hash = $2 AND NOT revoked`,
		now, hash)
	if err != nil {
		return false, fmt.Errorf("postgres: revoke refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllForPrincipal revokes every unrevoked record of the principal.
func (t *TokenStore) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	tag, err := t.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1 WHERE provider_id = $2 AND NOT revoked`,
		now, principalID)
	if err != nil {
		return 0, fmt.Errorf("postgres: revoke all: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountActiveForPrincipal counts unrevoked, unexpired records.
func (t *TokenStore) CountActiveForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := t.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE provider_id = $1 AND NOT revoked AND expires_at > $2`,
		principalID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active: %w", err)
	}
	return n, nil
}

// Rotate revokes the predecessor and inserts next in one transaction. The
// conditional UPDATE takes the row lock, so concurrent rotations of the same
// token serialize and only one sees an affected row.
func (t *TokenStore) Rotate(ctx context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin rotate: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, revoked_at = $1 WHERE token_hash = $2 AND NOT revoked AND expires_at > $1`,
		now, oldHash)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: rotate revoke: %w", err)
	}
	if tag.RowsAffected() != 1 {
		_ = tx.Rollback(ctx)
		return store.ErrTokenNotActive
	}
	if err := insertToken(ctx, tx, next); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit rotate: %w", err)
	}
	return nil
}

// DeleteExpiredBefore prunes records that expired before the cutoff.
func (t *TokenStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ store.CredentialStore = (*Store)(nil)
	_ store.PhoneDirectory  = (*Store)(nil)
	_ store.AttemptLedger   = (*Store)(nil)
	_ store.AttemptPruner   = (*Store)(nil)
	_ store.TokenStore      = (*TokenStore)(nil)
	_ store.TokenPruner     = (*TokenStore)(nil)
	_ DB                    = (*pgxpool.Pool)(nil)
)

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// Ping checks the pool.
func (t *TokenStore) Ping(ctx context.Context) error { return t.db.Ping(ctx) }
