package providerAuth

import (
	"errors"
	"strings"
	"time"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one advisory finding about a configuration that passes
// [Config.Validate] but is probably not what the operator wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the ordered result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but weaken the login policy. It
// never mutates c.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Login.MaxLoginAttempts > c.RateLimit.MaxAttempts {
		add("lockout_unreachable", LintHigh,
			"MaxLoginAttempts exceeds RateLimit.MaxAttempts; the rate limit fires before lockout can ever trigger")
	}
	if c.Login.LockoutDuration < c.RateLimit.Window {
		add("lockout_shorter_than_window", LintInfo,
			"LockoutDuration is shorter than the rate-limit window; the rate limit keeps blocking after lockout ends")
	}
	if c.Login.MaxConcurrentSessions > 20 {
		add("session_cap_high", LintInfo, "MaxConcurrentSessions above 20 gives little protection against session hoarding")
	}
	if c.Tokens.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "Tokens.Leeway above 30s extends the life of expired tokens")
	}
	if c.Tokens.AccessTTL > time.Hour {
		add("access_ttl_long", LintWarn, "access tokens live longer than 1h and cannot be revoked in jwt-only mode")
	}
	if c.Tokens.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh tokens live longer than 30 days")
	}
	if c.Tokens.RememberMeTTL > 90*24*time.Hour {
		add("remember_me_ttl_long", LintWarn, "remember-me refresh tokens live longer than 90 days")
	}
	if c.Tokens.SigningMethod == "hs256" {
		add("hs256_shared_secret", LintInfo, "HS256 shares one secret between issuers and verifiers; prefer ed25519 across services")
		if len(c.Tokens.HashKey) == 0 {
			add("hash_key_shared", LintInfo, "refresh-token fingerprints reuse the signing key; set Tokens.HashKey to rotate them independently")
		}
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "Argon2 memory below 64 MiB")
	}
	if !c.Registration.Enabled {
		add("registration_throttle_disabled", LintWarn, "provider registration is not rate limited")
	} else if c.Registration.FailOpen {
		add("registration_fail_open", LintInfo, "registration throttle admits every request while its counter store is unreachable")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not emitted")
	}
	if c.StoreTimeout == 0 {
		add("store_timeout_unbounded", LintWarn, "post-login bookkeeping writes have no deadline once the caller goes away")
	}
	return ws
}
