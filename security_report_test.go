package providerAuth

import (
	"testing"
	"time"
)

func TestSecurityReportDefaults(t *testing.T) {
	env := newTestEnv(t, testConfig())
	r := env.engine.SecurityReport()

	if r.SigningAlgorithm != "hs256" || r.StrictMode || r.ValidationMode != ModeJWTOnly {
		t.Fatalf("unexpected signing posture %+v", r)
	}
	if r.AccessTTL != time.Hour || r.RefreshTTL != 7*24*time.Hour || r.RememberMeTTL != 30*24*time.Hour {
		t.Fatalf("unexpected lifetimes %+v", r)
	}
	if !r.LockoutActive || !r.LockoutReachable || r.MaxLoginAttempts != 5 || r.LockoutDuration != 30*time.Minute {
		t.Fatalf("unexpected lockout posture %+v", r)
	}
	if !r.RateLimitingActive || r.IdentifierLimit != 5 || r.IPLimit != 10 || r.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate-limit posture %+v", r)
	}
	if !r.SessionCapActive || r.MaxConcurrentSessions != 5 {
		t.Fatalf("unexpected session cap %+v", r)
	}
	if !r.RegistrationThrottled || !r.RegistrationFailOpen {
		t.Fatalf("expected fail-open registration throttle, got %+v", r)
	}
	if r.TokenFingerprint != "hmac-sha256" || r.DedicatedHashKey || !r.RefreshRotationEnabled {
		t.Fatalf("unexpected token posture %+v", r)
	}
	if r.Argon2.Memory != 8*1024 || !r.Argon2.UpgradeOnLogin {
		t.Fatalf("unexpected argon2 report %+v", r.Argon2)
	}
}

func TestSecurityReportFlagsUnreachableLockout(t *testing.T) {
	cfg := testConfig()
	cfg.Login.MaxLoginAttempts = 8
	cfg.ValidationMode = ModeStrict
	cfg.Registration.FailOpen = false
	env := newTestEnv(t, cfg)

	r := env.engine.SecurityReport()
	if r.LockoutReachable {
		t.Fatal("lockout above the rate limit should be reported unreachable")
	}
	if !r.StrictMode {
		t.Fatal("expected strict mode")
	}
	if r.RegistrationFailOpen {
		t.Fatal("expected fail-closed registration")
	}
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r.SigningAlgorithm != "" || r.RefreshRotationEnabled {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
