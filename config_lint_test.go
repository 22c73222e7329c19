package providerAuth

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigHasNoHighFindings(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("default config should not fail AsError(LintHigh): %v", err)
	}
	codes := cfg.Lint().Codes()
	for _, unwanted := range []string{"lockout_unreachable", "access_ttl_long", "refresh_ttl_long", "leeway_large"} {
		if containsCode(codes, unwanted) {
			t.Errorf("default config should not produce %q", unwanted)
		}
	}
}

func TestLint_FailOpenRegistrationIsReported(t *testing.T) {
	cfg := defaultConfig()
	if !containsCode(cfg.Lint().Codes(), "registration_fail_open") {
		t.Fatal("expected registration_fail_open with the default fail-open throttle")
	}

	cfg.Registration.FailOpen = false
	if containsCode(cfg.Lint().Codes(), "registration_fail_open") {
		t.Fatal("fail-closed throttle should not be reported")
	}

	cfg.Registration.Enabled = false
	if !containsCode(cfg.Lint().Codes(), "registration_throttle_disabled") {
		t.Fatal("expected registration_throttle_disabled")
	}
}

func TestLint_LockoutUnreachable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Login.MaxLoginAttempts = cfg.RateLimit.MaxAttempts + 1
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "lockout_unreachable" {
		t.Fatalf("expected lockout_unreachable as the only HIGH finding, got %v", high.Codes())
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
}

func TestLint_TokenLifetimes(t *testing.T) {
	cfg := defaultConfig()
	cfg.Tokens.Leeway = 90 * time.Second
	cfg.Tokens.AccessTTL = 2 * time.Hour
	cfg.Tokens.RefreshTTL = 45 * 24 * time.Hour
	cfg.Tokens.RememberMeTTL = 120 * 24 * time.Hour

	codes := cfg.Lint().Codes()
	for _, want := range []string{"leeway_large", "access_ttl_long", "refresh_ttl_long", "remember_me_ttl_long"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %q in %v", want, codes)
		}
	}
}

func TestLint_HashKeySharedOnlyWithoutDedicatedKey(t *testing.T) {
	cfg := defaultConfig()
	if !containsCode(cfg.Lint().Codes(), "hash_key_shared") {
		t.Fatal("expected hash_key_shared when HashKey is empty")
	}
	cfg.Tokens.HashKey = []byte("fedcba9876543210fedcba9876543210")
	if containsCode(cfg.Lint().Codes(), "hash_key_shared") {
		t.Fatal("dedicated HashKey should silence hash_key_shared")
	}
}

func TestLint_Argon2AndStoreTimeout(t *testing.T) {
	cfg := defaultConfig()
	cfg.Password.Memory = 16 * 1024
	cfg.StoreTimeout = 0

	ws := cfg.Lint()
	for _, want := range []string{"argon2_memory_low", "store_timeout_unbounded"} {
		if !containsCode(ws.Codes(), want) {
			t.Errorf("expected %q", want)
		}
	}
	for _, w := range ws.BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Errorf("BySeverity(LintWarn) returned %s", w.Severity)
		}
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
