//go:build integration
// +build integration

package test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestJWTIntegrationHardeningChecks(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	manager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "providerAuth",
		Audience:      "portal",
		Leeway:        30 * time.Second,
		RequireIAT:    true,
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	access, err := manager.Issue(jwt.KindAccess, "4b1d3e1c-7a51-4d8e-9c55-0f0e4f3b2a10", &jwt.Profile{
		Email: "dr.house@example.com",
		Role:  "healthcare_provider",
	}, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := manager.ParseKind(access.Token, jwt.KindAccess); err != nil {
		t.Fatalf("ParseKind valid token failed: %v", err)
	}
	if _, err := manager.ParseKind(access.Token, jwt.KindRefresh); err == nil {
		t.Fatal("expected access token to be rejected as refresh token")
	}

	badClaims := jwt.Claims{
		UID:  "4b1d3e1c-7a51-4d8e-9c55-0f0e4f3b2a10",
		Kind: jwt.KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "jti-1",
			Issuer:    "providerAuth",
			Audience:  gjwt.ClaimStrings{"portal"},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
		},
	}

	badToken := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, badClaims)
	badToken.Header["kid"] = "unknown"
	signedBad, err := badToken.SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := manager.Parse(signedBad); err == nil {
		t.Fatal("expected unknown kid token to fail")
	}

	hsToken := gjwt.NewWithClaims(gjwt.SigningMethodHS256, badClaims)
	hsToken.Header["kid"] = "k1"
	signedHS, err := hsToken.SignedString([]byte(pub))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := manager.Parse(signedHS); err == nil {
		t.Fatal("expected algorithm confusion token to fail")
	}
}
