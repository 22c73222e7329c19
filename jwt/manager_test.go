package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "providerauth",
		Audience:      "provider-api",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueAndParseAccess(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	profile := &Profile{
		Email:              "grace@example.com",
		Role:               "healthcare_provider",
		FirstName:          "Grace",
		LastName:           "Hopper",
		Specialization:     "cardiology",
		VerificationStatus: "VERIFIED",
	}
	issued, err := m.Issue(KindAccess, "p-1", profile, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}

	claims, err := m.ParseKind(issued.Token, KindAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "p-1" || claims.Subject != "p-1" || claims.ID != issued.ID {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.Email != profile.Email || claims.Specialization != "cardiology" || claims.Role != "healthcare_provider" {
		t.Fatalf("profile claims not embedded: %+v", claims)
	}
}

func TestRefreshTokensCarryNoProfile(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	issued, err := m.Issue(KindRefresh, "p-1", &Profile{Email: "x@y.z"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.ParseKind(issued.Token, KindRefresh)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "" {
		t.Fatalf("refresh token leaked profile: %q", claims.Email)
	}
}

func TestParseKindRejectsWrongKind(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	issued, err := m.Issue(KindAccess, "p-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.ParseKind(issued.Token, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSameSecondIssuesDiffer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	a, err := m.Issue(KindRefresh, "p-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := m.Issue(KindRefresh, "p-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a.Token == b.Token || a.ID == b.ID {
		t.Fatal("expected distinct tokens within the same second")
	}
}

func TestExpiredTokenIsInvalidAndExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	issued, err := m.Issue(KindAccess, "p-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.now = clock.now.Add(2 * time.Minute)

	_, err = m.Parse(issued.Token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if !IsExpired(err) {
		t.Fatalf("expected expiry to be detectable, got %v", err)
	}
}

func TestTamperedTokenIsInvalidNotExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	issued, err := m.Issue(KindAccess, "p-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	i := len(issued.Token) - 5
	repl := byte('A')
	if issued.Token[i] == 'A' {
		repl = 'B'
	}
	tampered := issued.Token[:i] + string(repl) + issued.Token[i+1:]
	_, err = m.Parse(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if IsExpired(err) {
		t.Fatal("signature failure must not look like expiry")
	}
}

func TestParseRejectsOtherIssuerAndAudience(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)
	other, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "someone-else", Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issued, err := other.Issue(KindAccess, "p-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch to be rejected, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{UID: "p-1", Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "j1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})
	claims := Claims{UID: "p-1", Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID:       "j1",
		Issuer:   "providerauth",
		Audience: gjwt.ClaimStrings{"provider-api"},
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestEd25519KeyRotation(t *testing.T) {
	pubOld, privOld := newEdKeys(t)
	pubNew, privNew := newEdKeys(t)

	oldSigner, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: privOld, PublicKey: pubOld, KeyID: "old"})
	if err != nil {
		t.Fatalf("old signer: %v", err)
	}
	verifier, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    privNew,
		KeyID:         "new",
		VerifyKeys:    map[string][]byte{"old": pubOld, "new": pubNew},
	})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	oldTok, err := oldSigner.Issue(KindAccess, "p-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("issue old: %v", err)
	}
	if _, err := verifier.Parse(oldTok.Token); err != nil {
		t.Fatalf("expected old kid to verify during rotation: %v", err)
	}
	newTok, err := verifier.Issue(KindAccess, "p-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("issue new: %v", err)
	}
	if _, err := verifier.Parse(newTok.Token); err != nil {
		t.Fatalf("expected new kid to verify: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{SigningMethod: MethodEd25519},
		{SigningMethod: "rs256", PrivateKey: testSecret},
		{SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestIssueValidation(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})
	if _, err := m.Issue(KindAccess, "p-1", nil, 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := m.Issue("id", "p-1", nil, time.Minute); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
	if _, err := m.Issue(KindAccess, "", nil, time.Minute); err == nil {
		t.Fatal("expected empty principal to fail")
	}
}
