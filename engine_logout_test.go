package providerAuth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	login, err := env.login(false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	hash := env.engine.tokenHasher.Hash(login.RefreshToken)

	env.engine.Logout(context.Background(), login.RefreshToken, testIP)
	rec, err := env.tokens.FindByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if !rec.Revoked {
		t.Fatal("expected record revoked")
	}
	revokedAt := rec.RevokedAt

	env.clock.Advance(time.Second)
	env.engine.Logout(context.Background(), login.RefreshToken, testIP)
	rec, err = env.tokens.FindByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if !rec.RevokedAt.Equal(revokedAt) {
		t.Fatalf("second logout changed the record: %v -> %v", revokedAt, rec.RevokedAt)
	}

	if got := env.engine.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected one logout counted, got %d", got)
	}
	_, err = env.engine.Refresh(context.Background(), login.RefreshToken, testIP)
	assertKind(t, err, ErrAuthenticationFailed)
}

func TestLogoutSwallowsGarbageAndStoreErrors(t *testing.T) {
	faulty := &faultyTokens{}
	env := newTestEnvWith(t, testConfig(), func(env *testEnv) envOptions {
		faulty.TokenStore = env.tokens
		return envOptions{tokens: faulty}
	})

	env.engine.Logout(context.Background(), "garbage", testIP)
	env.engine.Logout(context.Background(), "", "")
	if len(faulty.revoked) != 0 {
		t.Fatalf("unparseable tokens must not reach the store, got %d calls", len(faulty.revoked))
	}

	login, err := env.login(false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	faulty.revokeErr = errors.New("store down")
	env.engine.Logout(context.Background(), login.RefreshToken, testIP)
	if len(faulty.revoked) != 1 {
		t.Fatalf("expected one revoke attempt, got %d", len(faulty.revoked))
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t, testConfig())
	for i := 0; i < 3; i++ {
		if _, err := env.login(false); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	if err := env.engine.LogoutAll(context.Background(), env.principal.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if n := env.activeSessions(t); n != 0 {
		t.Fatalf("expected no active sessions, got %d", n)
	}

	var revoked string
	for _, ev := range env.events() {
		if ev.EventType == auditEventLogoutAll {
			revoked = ev.Metadata["revoked"]
		}
	}
	if revoked != "3" {
		t.Fatalf("expected revoked=3 in audit metadata, got %q", revoked)
	}
}

func TestLogoutAllStoreFailureIsInternal(t *testing.T) {
	env := newTestEnvWith(t, testConfig(), func(env *testEnv) envOptions {
		return envOptions{tokens: &revokeAllFailing{faultyTokens{TokenStore: env.tokens}}}
	})

	err := env.engine.LogoutAll(context.Background(), env.principal.ID)
	assertKind(t, err, ErrInternal)
}
