package providerAuth

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := newError(ErrInternal, cause)

	if !errors.Is(err, ErrInternal) {
		t.Fatal("expected match on kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
	if errors.Is(err, ErrAuthenticationFailed) {
		t.Fatal("different kinds must not match")
	}
	if err.Error() != ErrInternal.Message {
		t.Fatalf("message must not leak the cause, got %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("login: %w", ErrAccountLocked)); got != KindAccountLocked {
		t.Fatalf("expected ACCOUNT_LOCKED, got %s", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("expected UNKNOWN, got %s", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Fatalf("expected UNKNOWN for nil, got %s", got)
	}
}

func TestKindCodesAreStable(t *testing.T) {
	want := map[Kind]string{
		KindValidation:           "VALIDATION",
		KindRateLimited:          "RATE_LIMITED",
		KindAuthenticationFailed: "AUTHENTICATION_FAILED",
		KindAccountDisabled:      "ACCOUNT_DISABLED",
		KindEmailNotVerified:     "EMAIL_NOT_VERIFIED",
		KindAccountLocked:        "ACCOUNT_LOCKED",
		KindSessionLimit:         "SESSION_LIMIT",
		KindInternal:             "INTERNAL",
		KindNotFound:             "NOT_FOUND",
	}
	for k, code := range want {
		if k.Code() != code {
			t.Fatalf("kind %d: expected %s, got %s", k, code, k.Code())
		}
	}
}
