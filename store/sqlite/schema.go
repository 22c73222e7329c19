package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS providers (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	phone_number TEXT,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	specialization TEXT NOT NULL DEFAULT '',
	verification_status TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	email_verified INTEGER NOT NULL DEFAULT 0,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until INTEGER NOT NULL DEFAULT 0,
	login_count INTEGER NOT NULL DEFAULT 0,
	last_login INTEGER NOT NULL DEFAULT 0,
	concurrent_sessions INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_providers_phone ON providers(phone_number);

CREATE TABLE IF NOT EXISTS login_attempts (
	id TEXT PRIMARY KEY,
	provider_id TEXT,
	identifier TEXT NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_identifier ON login_attempts(identifier, created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_ip ON login_attempts(ip_address, created_at);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	id TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL,
	token_hash TEXT NOT NULL UNIQUE,
	token_id TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	revoked INTEGER NOT NULL DEFAULT 0,
	revoked_at INTEGER NOT NULL DEFAULT 0,
	remember_me INTEGER NOT NULL DEFAULT 0,
	device_info TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_provider ON refresh_tokens(provider_id, revoked);
`

// Migrate creates the tables and indexes used by this package.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
