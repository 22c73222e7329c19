package providerAuth

import (
	"time"

	"github.com/MrEthical07/providerAuth/internal/security"
)

// SecurityReport is a read-only summary of the engine's effective security
// posture. It carries no key material.
type SecurityReport struct {
	SigningAlgorithm       string
	ValidationMode         ValidationMode
	StrictMode             bool
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	RememberMeTTL          time.Duration
	Argon2                 PasswordConfigReport
	TokenFingerprint       string
	DedicatedHashKey       bool
	LockoutActive          bool
	MaxLoginAttempts       int
	LockoutDuration        time.Duration
	RateLimitingActive     bool
	RateLimitWindow        time.Duration
	IdentifierLimit        int
	IPLimit                int
	SessionCapActive       bool
	MaxConcurrentSessions  int
	LockoutReachable       bool
	RegistrationThrottled  bool
	RegistrationFailOpen   bool
	AuditEnabled           bool
	BookkeepingTimeout     time.Duration
	RefreshRotationEnabled bool
}

// PasswordConfigReport mirrors the Argon2id parameters in use.
type PasswordConfigReport struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// SecurityReport returns the posture derived from the engine's config.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	r := security.BuildReport(security.ReportInput{
		SigningAlgorithm: cfg.Tokens.SigningMethod,
		ValidationMode:   int(cfg.ValidationMode),
		StrictMode:       cfg.ValidationMode == ModeStrict,
		AccessTTL:        cfg.Tokens.AccessTTL,
		RefreshTTL:       cfg.Tokens.RefreshTTL,
		RememberMeTTL:    cfg.Tokens.RememberMeTTL,
		Password: security.PasswordReport{
			Memory:         cfg.Password.Memory,
			Time:           cfg.Password.Time,
			Parallelism:    cfg.Password.Parallelism,
			SaltLength:     cfg.Password.SaltLength,
			KeyLength:      cfg.Password.KeyLength,
			UpgradeOnLogin: cfg.Password.UpgradeOnLogin,
		},
		DedicatedHashKey:      len(cfg.Tokens.HashKey) > 0,
		MaxLoginAttempts:      cfg.Login.MaxLoginAttempts,
		LockoutDuration:       cfg.Login.LockoutDuration,
		RateLimitWindow:       cfg.RateLimit.Window,
		RateLimitMaxAttempts:  cfg.RateLimit.MaxAttempts,
		MaxConcurrentSessions: cfg.Login.MaxConcurrentSessions,
		RegistrationEnabled:   cfg.Registration.Enabled,
		RegistrationFailOpen:  cfg.Registration.FailOpen,
		AuditEnabled:          cfg.Audit.Enabled,
		StoreTimeout:          cfg.StoreTimeout,
	})

	return SecurityReport{
		SigningAlgorithm:       r.SigningAlgorithm,
		ValidationMode:         ValidationMode(r.ValidationMode),
		StrictMode:             r.StrictMode,
		AccessTTL:              r.AccessTTL,
		RefreshTTL:             r.RefreshTTL,
		RememberMeTTL:          r.RememberMeTTL,
		Argon2:                 PasswordConfigReport(r.Argon2),
		TokenFingerprint:       r.TokenFingerprint,
		DedicatedHashKey:       r.DedicatedHashKey,
		LockoutActive:          r.LockoutActive,
		MaxLoginAttempts:       r.MaxLoginAttempts,
		LockoutDuration:        r.LockoutDuration,
		RateLimitingActive:     r.RateLimitingActive,
		RateLimitWindow:        r.RateLimitWindow,
		IdentifierLimit:        r.IdentifierLimit,
		IPLimit:                r.IPLimit,
		SessionCapActive:       r.SessionCapActive,
		MaxConcurrentSessions:  r.MaxConcurrentSessions,
		LockoutReachable:       r.LockoutReachable,
		RegistrationThrottled:  r.RegistrationThrottled,
		RegistrationFailOpen:   r.RegistrationFailOpen,
		AuditEnabled:           r.AuditEnabled,
		BookkeepingTimeout:     r.BookkeepingTimeout,
		RefreshRotationEnabled: r.RefreshRotationEnabled,
	}
}
