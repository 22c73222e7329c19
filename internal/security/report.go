package security

import "time"

type PasswordReport struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

type Report struct {
	SigningAlgorithm       string
	ValidationMode         int
	StrictMode             bool
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	RememberMeTTL          time.Duration
	Argon2                 PasswordReport
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

type ReportInput struct {
	SigningAlgorithm      string
	ValidationMode        int
	StrictMode            bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	RememberMeTTL         time.Duration
	Password              PasswordReport
	DedicatedHashKey      bool
	MaxLoginAttempts      int
	LockoutDuration       time.Duration
	RateLimitWindow       time.Duration
	RateLimitMaxAttempts  int
	MaxConcurrentSessions int
	RegistrationEnabled   bool
	RegistrationFailOpen  bool
	AuditEnabled          bool
	StoreTimeout          time.Duration
}

// BuildReport is pure; equal inputs give equal reports.
func BuildReport(input ReportInput) Report {
	lockout := input.MaxLoginAttempts > 0 && input.LockoutDuration > 0
	rateLimiting := input.RateLimitMaxAttempts > 0 && input.RateLimitWindow > 0

	return Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		ValidationMode:        input.ValidationMode,
		StrictMode:            input.StrictMode,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		RememberMeTTL:         input.RememberMeTTL,
		Argon2:                input.Password,
		TokenFingerprint:      "hmac-sha256",
		DedicatedHashKey:      input.DedicatedHashKey,
		LockoutActive:         lockout,
		MaxLoginAttempts:      input.MaxLoginAttempts,
		LockoutDuration:       input.LockoutDuration,
		RateLimitingActive:    rateLimiting,
		RateLimitWindow:       input.RateLimitWindow,
		IdentifierLimit:       input.RateLimitMaxAttempts,
		IPLimit:               2 * input.RateLimitMaxAttempts,
		SessionCapActive:      input.MaxConcurrentSessions > 0,
		MaxConcurrentSessions: input.MaxConcurrentSessions,
		// Failures stop counting once the identifier is rate limited.
		LockoutReachable:      lockout && (!rateLimiting || input.MaxLoginAttempts <= input.RateLimitMaxAttempts),
		RegistrationThrottled: input.RegistrationEnabled,
		RegistrationFailOpen:  input.RegistrationEnabled && input.RegistrationFailOpen,
		AuditEnabled:          input.AuditEnabled,
		BookkeepingTimeout:    input.StoreTimeout,
		// Refresh always rotates; there is no switch to turn it off.
		RefreshRotationEnabled: true,
	}
}
