// Package sqlite implements the store contracts on database/sql with the
// pure-Go modernc.org/sqlite driver.
//
// Timestamps are stored as Unix nanoseconds; zero means unset. SQLite allows
// one writer at a time, so [Open] pins the pool to a single connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Open opens the database at dsn, applies pragmas, and runs [Migrate].
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Store implements every store contract over one *sql.DB.
type Store struct {
	db *sql.DB
}

// New wraps an opened and migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Insert adds a new principal row. Duplicate emails report store.ErrConflict.
func (s *Store) Insert(ctx context.Context, p *store.Principal) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO providers (id, email, phone_number, first_name, last_name, specialization,
	verification_status, role, password_hash, active, email_verified, failed_login_attempts,
	locked_until, login_count, last_login, concurrent_sessions, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), strings.ToLower(p.Email), p.PhoneNumber, p.FirstName, p.LastName,
		p.Specialization, p.VerificationStatus, p.Role, p.PasswordHash, boolInt(p.Active),
		boolInt(p.EmailVerified), p.Lockout.FailedAttempts(), toNanos(p.Lockout.LockedUntil()),
		p.LoginCount, toNanos(p.LastLogin), p.ConcurrentSessions, toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	if isUniqueConstraintErr(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert provider: %w", err)
	}
	return nil
}

const principalColumns = `id, email, phone_number, first_name, last_name, specialization,
	verification_status, role, password_hash, active, email_verified, failed_login_attempts,
	locked_until, login_count, last_login, concurrent_sessions, created_at, updated_at`

func scanPrincipal(row rowScanner) (*store.Principal, error) {
	var (
		p                                        store.Principal
		id                                       string
		phone                                    sql.NullString
		active, verified, failed                 int
		lockedUntil, lastLogin, created, updated int64
	)
	err := row.Scan(&id, &p.Email, &phone, &p.FirstName, &p.LastName, &p.Specialization,
		&p.VerificationStatus, &p.Role, &p.PasswordHash, &active, &verified, &failed,
		&lockedUntil, &p.LoginCount, &lastLogin, &p.ConcurrentSessions, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan provider: %w", err)
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("sqlite: provider id: %w", err)
	}
	p.PhoneNumber = phone.String
	p.Active = active == 1
	p.EmailVerified = verified == 1
	p.Lockout = store.RestoreLockout(failed, fromNanos(lockedUntil))
	p.LastLogin = fromNanos(lastLogin)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

// FindByIdentifier looks a principal up by email.
func (s *Store) FindByIdentifier(ctx context.Context, email string) (*store.Principal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM providers WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanPrincipal(row)
}

// FindByPhone looks a principal up by phone number.
func (s *Store) FindByPhone(ctx context.Context, phone string) (*store.Principal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM providers WHERE phone_number = ?`,
		strings.TrimSpace(phone))
	return scanPrincipal(row)
}

// FindByID looks a principal up by id.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*store.Principal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+principalColumns+` FROM providers WHERE id = ?`, id.String())
	return scanPrincipal(row)
}

func affectedOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecordFailure increments the counter inside one transaction. The pool
// holds a single connection, so concurrent callers queue on it.
func (s *Store) RecordFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockout time.Duration) (store.LockoutState, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.LockoutState{}, false, fmt.Errorf("sqlite: begin record failure: %w", err)
	}
	defer tx.Rollback()

	var (
		failed      int
		lockedUntil int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT failed_login_attempts, locked_until FROM providers WHERE id = ?`, id.String()).
		Scan(&failed, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return store.LockoutState{}, false, store.ErrNotFound
	}
	if err != nil {
		return store.LockoutState{}, false, fmt.Errorf("sqlite: read lockout: %w", err)
	}

	state := store.RestoreLockout(failed, fromNanos(lockedUntil))
	lockedNow := state.RecordFailure(now, maxAttempts, lockout)
	if _, err := tx.ExecContext(ctx,
		`UPDATE providers SET failed_login_attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?`,
		state.FailedAttempts(), toNanos(state.LockedUntil()), toNanos(now), id.String()); err != nil {
		return store.LockoutState{}, false, fmt.Errorf("sqlite: record failure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.LockoutState{}, false, fmt.Errorf("sqlite: commit record failure: %w", err)
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
	res, err := s.db.ExecContext(ctx, `
UPDATE providers SET
	failed_login_attempts = 0,
	locked_until = 0,
	login_count = login_count + 1,
	last_login = MAX(last_login, ?1),
	concurrent_sessions = ?2,
	password_hash = CASE WHEN ?3 <> '' AND password_hash = ?4 THEN ?3 ELSE password_hash END,
	updated_at = ?1
WHERE id = ?5`,
		toNanos(u.At), sessions, u.PasswordHash, u.PreviousHash, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: record login: %w", err)
	}
	return affectedOne(res, "record login")
}

// ResetLockout clears the counter and deadline.
func (s *Store) ResetLockout(ctx context.Context, id uuid.UUID, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET failed_login_attempts = 0, locked_until = 0, updated_at = ? WHERE id = ?`,
		toNanos(now), id.String())
	if err != nil {
		return fmt.Errorf("sqlite: reset lockout: %w", err)
	}
	return affectedOne(res, "reset lockout")
}

// SetActive writes the active flag.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET active = ?, updated_at = ? WHERE id = ?`,
		boolInt(active), toNanos(now), id.String())
	if err != nil {
		return fmt.Errorf("sqlite: set active: %w", err)
	}
	return affectedOne(res, "set active")
}

// Append records one ledger row.
func (s *Store) Append(ctx context.Context, a store.LoginAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var pid sql.NullString
	if a.PrincipalID != nil {
		pid = sql.NullString{String: a.PrincipalID.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO login_attempts (id, provider_id, identifier, ip_address, user_agent, outcome, failure_reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), pid, a.Identifier, a.IPAddress, a.UserAgent, string(a.Outcome),
		string(a.FailureReason), toNanos(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: append attempt: %w", err)
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
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE `+column+` = ? AND created_at > ? AND `+failedOutcomes,
		value, toNanos(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count attempts: %w", err)
	}
	return n, nil
}

// DeleteAttemptsBefore prunes ledger rows created before the cutoff.
func (s *Store) DeleteAttemptsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE created_at < ?`, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune attempts: %w", err)
	}
	return res.RowsAffected()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertToken(ctx context.Context, db execer, rec store.RefreshTokenRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO refresh_tokens (id, provider_id, token_hash, token_id, expires_at, revoked, revoked_at,
	remember_me, device_info, ip_address, user_agent, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.PrincipalID.String(), rec.TokenHash, rec.TokenID, toNanos(rec.ExpiresAt),
		boolInt(rec.Revoked), toNanos(rec.RevokedAt), boolInt(rec.RememberMe), rec.DeviceInfo,
		rec.IPAddress, rec.UserAgent, toNanos(rec.CreatedAt))
	if isUniqueConstraintErr(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert refresh token: %w", err)
	}
	return nil
}

// SaveToken inserts a refresh-token record.
func (s *Store) SaveToken(ctx context.Context, rec store.RefreshTokenRecord) error {
	return insertToken(ctx, s.db, rec)
}

// FindByHash returns the refresh-token record with the given fingerprint.
func (s *Store) FindByHash(ctx context.Context, hash string) (*store.RefreshTokenRecord, error) {
	var (
		rec                         store.RefreshTokenRecord
		id, pid                     string
		revoked, remember           int
		expires, revokedAt, created int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, provider_id, token_hash, token_id, expires_at, revoked, revoked_at, remember_me,
	device_info, ip_address, user_agent, created_at
FROM refresh_tokens WHERE token_hash = ?`, hash).Scan(
		&id, &pid, &rec.TokenHash, &rec.TokenID, &expires, &revoked, &revokedAt, &remember,
		&rec.DeviceInfo, &rec.IPAddress, &rec.UserAgent, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find refresh token: %w", err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("sqlite: refresh token id: %w", err)
	}
	if rec.PrincipalID, err = uuid.Parse(pid); err != nil {
		return nil, fmt.Errorf("sqlite: refresh token provider id: %w", err)
	}
	rec.ExpiresAt = fromNanos(expires)
	rec.Revoked = revoked == 1
	rec.RevokedAt = fromNanos(revokedAt)
	rec.RememberMe = remember == 1
	rec.CreatedAt = fromNanos(created)
	return &rec, nil
}

// RevokeByHash revokes one record if it is not already revoked.
func (s *Store) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE token_hash = ? AND revoked = 0`,
		toNanos(now), hash)
	if err != nil {
		return false, fmt.Errorf("sqlite: revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: revoke refresh token: %w", err)
	}
	return n == 1, nil
}

// RevokeAllForPrincipal revokes every unrevoked record of the principal.
func (s *Store) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE provider_id = ? AND revoked = 0`,
		toNanos(now), principalID.String())
	if err != nil {
		return 0, fmt.Errorf("sqlite: revoke all: %w", err)
	}
	return res.RowsAffected()
}

// CountActiveForPrincipal counts unrevoked, unexpired records.
func (s *Store) CountActiveForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE provider_id = ? AND revoked = 0 AND expires_at > ?`,
		principalID.String(), toNanos(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count active: %w", err)
	}
	return n, nil
}

// Rotate revokes the predecessor and inserts next in one transaction.
func (s *Store) Rotate(ctx context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin rotate: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		toNanos(now), oldHash, toNanos(now))
	if err != nil {
		return fmt.Errorf("sqlite: rotate revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rotate revoke: %w", err)
	}
	if n != 1 {
		return store.ErrTokenNotActive
	}
	if err := insertToken(ctx, tx, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit rotate: %w", err)
	}
	return nil
}

// DeleteExpiredBefore prunes refresh-token records that expired before the cutoff.
func (s *Store) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune refresh tokens: %w", err)
	}
	return res.RowsAffected()
}

// Tokens returns a [store.TokenStore] view of s.
func (s *Store) Tokens() *TokenStore { return &TokenStore{s: s} }

// TokenStore adapts [Store] to [store.TokenStore]. Store itself serves the
// credential and ledger contracts; token inserts go through this view.
type TokenStore struct{ s *Store }

func (t *TokenStore) Save(ctx context.Context, rec store.RefreshTokenRecord) error {
	return t.s.SaveToken(ctx, rec)
}

func (t *TokenStore) FindByHash(ctx context.Context, hash string) (*store.RefreshTokenRecord, error) {
	return t.s.FindByHash(ctx, hash)
}

func (t *TokenStore) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	return t.s.RevokeByHash(ctx, hash, now)
}

func (t *TokenStore) RevokeAllForPrincipal(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	return t.s.RevokeAllForPrincipal(ctx, id, now)
}

func (t *TokenStore) CountActiveForPrincipal(ctx context.Context, id uuid.UUID, now time.Time) (int, error) {
	return t.s.CountActiveForPrincipal(ctx, id, now)
}

func (t *TokenStore) Rotate(ctx context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	return t.s.Rotate(ctx, oldHash, next, now)
}

func (t *TokenStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	return t.s.DeleteExpiredBefore(ctx, before)
}

var (
	_ store.CredentialStore = (*Store)(nil)
	_ store.PhoneDirectory  = (*Store)(nil)
	_ store.AttemptLedger   = (*Store)(nil)
	_ store.AttemptPruner   = (*Store)(nil)
	_ store.TokenStore      = (*TokenStore)(nil)
	_ store.TokenPruner     = (*TokenStore)(nil)
)

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Ping checks the database connection.
func (t *TokenStore) Ping(ctx context.Context) error { return t.s.Ping(ctx) }
