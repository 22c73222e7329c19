package providerAuth

import (
	"errors"
	"strings"
	"time"
)

// Config is the full engine configuration. Build a copy with [DefaultConfig],
// adjust it, and pass it to [Builder.WithConfig]. The engine keeps its own
// clone after Build.
type Config struct {
	Login          LoginConfig
	RateLimit      RateLimitConfig
	Tokens         TokenConfig
	Password       PasswordConfig
	Registration   RegistrationConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	ValidationMode ValidationMode
	// StoreTimeout bounds the post-success bookkeeping writes of Login and
	// the rotation write of Refresh. Zero means no extra bound.
	StoreTimeout time.Duration
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig controls account lockout and the concurrent-session cap.
type LoginConfig struct {
	MaxLoginAttempts      int
	LockoutDuration       time.Duration
	MaxConcurrentSessions int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the ledger-backed login throttle. The IP-scoped
// threshold is twice MaxAttempts.
type RateLimitConfig struct {
	Window      time.Duration
	MaxAttempts int
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds signing material and token lifetimes.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// HashKey keys the HMAC fingerprint stored for refresh tokens. When
	// empty the HS256 signing key is used; ed25519 setups must set it.
	HashKey []byte
	// RedisPrefix namespaces refresh-token keys when the engine builds the
	// Redis token store itself.
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for newly produced hashes.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig controls the per-IP provider-registration throttle.
type RegistrationConfig struct {
	Enabled     bool
	RedisPrefix string
	Window      time.Duration
	MaxRequests int
	// FailOpen treats callers as not limited when the counter store is
	// unreachable. Disable it to fail closed.
	FailOpen bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ValidationMode selects how [Engine.Validate] checks access tokens.
type ValidationMode int

const (
	// ModeJWTOnly verifies signature and claims without touching a store.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also requires the principal to exist and be active and verified.
	ModeStrict
)

// ModeInherit is only meaningful as a route override; it defers to the
// engine's configured mode.
const ModeInherit ValidationMode = -1

// RouteMode is the per-route override mode for Engine.Validate.
type RouteMode = ValidationMode

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults. Signing keys are empty and
// must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

// HardenedConfig returns the defaults tightened for deployments where a
// disabled account must lose access immediately: strict validation, short
// access tokens, a fail-closed registration throttle and audit on.
func HardenedConfig() Config {
	cfg := defaultConfig()
	cfg.ValidationMode = ModeStrict
	cfg.Tokens.AccessTTL = 15 * time.Minute
	cfg.Login.MaxConcurrentSessions = 3
	cfg.Registration.FailOpen = false
	cfg.Audit.Enabled = true
	return cfg
}

func defaultConfig() Config {
	return Config{
		Login: LoginConfig{
			MaxLoginAttempts:      5,
			LockoutDuration:       30 * time.Minute,
			MaxConcurrentSessions: 5,
		},
		RateLimit: RateLimitConfig{
			Window:      15 * time.Minute,
			MaxAttempts: 5,
		},
		Tokens: TokenConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			RememberMeTTL: 30 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "providerAuth",
			RedisPrefix:   "pa:rt",
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Registration: RegistrationConfig{
			Enabled:     true,
			RedisPrefix: "rate_limit:registration:",
			Window:      time.Hour,
			MaxRequests: 5,
			FailOpen:    true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		ValidationMode: ModeJWTOnly,
		StoreTimeout:   5 * time.Second,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Tokens.PrivateKey = cloneBytes(cfg.Tokens.PrivateKey)
	out.Tokens.PublicKey = cloneBytes(cfg.Tokens.PublicKey)
	out.Tokens.HashKey = cloneBytes(cfg.Tokens.HashKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// tokenHashKey returns the key for refresh-token fingerprints.
func (c *Config) tokenHashKey() []byte {
	if len(c.Tokens.HashKey) > 0 {
		return c.Tokens.HashKey
	}
	if c.Tokens.SigningMethod == "hs256" {
		return c.Tokens.PrivateKey
	}
	return nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Login
	if c.Login.MaxLoginAttempts <= 0 {
		return errors.New("Login MaxLoginAttempts must be > 0")
	}
	if c.Login.LockoutDuration <= 0 {
		return errors.New("Login LockoutDuration must be > 0")
	}
	if c.Login.MaxConcurrentSessions <= 0 {
		return errors.New("Login MaxConcurrentSessions must be > 0")
	}

	// Rate limit
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}

	// Tokens
	if c.Tokens.AccessTTL <= 0 {
		return errors.New("Tokens AccessTTL must be > 0")
	}
	if c.Tokens.RefreshTTL <= 0 {
		return errors.New("Tokens RefreshTTL must be > 0")
	}
	if c.Tokens.RememberMeTTL <= 0 {
		return errors.New("Tokens RememberMeTTL must be > 0")
	}
	if c.Tokens.RememberMeTTL < c.Tokens.RefreshTTL {
		return errors.New("Tokens RememberMeTTL must be >= RefreshTTL")
	}
	if c.Tokens.AccessTTL > c.Tokens.RefreshTTL {
		return errors.New("Tokens AccessTTL must be <= RefreshTTL")
	}
	switch c.Tokens.SigningMethod {
	case "hs256":
		if len(c.Tokens.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.Tokens.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.Tokens.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported token signing method")
	}
	if len(c.tokenHashKey()) < 32 {
		return errors.New("Tokens HashKey must be at least 32 bytes")
	}
	if c.Tokens.Leeway < 0 || c.Tokens.Leeway > 2*time.Minute {
		return errors.New("Tokens Leeway must be between 0 and 2m")
	}
	if strings.TrimSpace(c.Tokens.RedisPrefix) == "" {
		return errors.New("Tokens RedisPrefix must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Registration
	if c.Registration.Enabled {
		if c.Registration.Window <= 0 {
			return errors.New("Registration Window must be > 0")
		}
		if c.Registration.MaxRequests <= 0 {
			return errors.New("Registration MaxRequests must be > 0")
		}
		if c.Registration.RedisPrefix == "" {
			return errors.New("Registration RedisPrefix must not be empty")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	switch c.ValidationMode {
	case ModeJWTOnly, ModeStrict:
	default:
		return errors.New("ValidationMode must be ModeJWTOnly or ModeStrict")
	}

	if c.StoreTimeout < 0 {
		return errors.New("StoreTimeout must be >= 0")
	}
	return nil
}
