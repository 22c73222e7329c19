package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/middleware"
	"github.com/MrEthical07/providerAuth/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	demoEmail    = "dr.cuddy@example.com"
	demoPassword = "princeton-plainsboro"
)

type harness struct {
	router http.Handler
	ledger *memory.Ledger
}

func newHarness(t *testing.T, trusted ...string) *harness {
	t.Helper()

	cfg := providerAuth.DefaultConfig()
	cfg.Tokens.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	be, err := openBackend(context.Background(), "memory", "")
	require.NoError(t, err)
	require.NoError(t, seedPrincipal(context.Background(), be, cfg, demoEmail, demoPassword))

	engine, err := providerAuth.New().
		WithConfig(cfg).
		WithCredentialStore(be.credentials).
		WithAttemptLedger(be.ledger).
		WithTokenStore(be.tokens).
		WithMetricsEnabled(true).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	prefixes, err := middleware.ParseTrusted(trusted...)
	require.NoError(t, err)

	return &harness{
		router: newRouter(engine, middleware.ClientIP{Trusted: prefixes}, nil),
		ledger: be.ledger.(*memory.Ledger),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:51000"
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	var out tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", loginBody{Identifier: demoEmail, Password: demoPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeTokens(t, rec)
	assert.Equal(t, providerAuth.TokenTypeBearer, login.TokenType)
	assert.EqualValues(t, 3600, login.ExpiresIn)
	require.NotNil(t, login.Principal)
	assert.Equal(t, demoEmail, login.Principal.Email)
	assert.Equal(t, 1, login.Principal.LoginCount)

	rec = h.do(t, http.MethodGet, "/api/v1/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), demoEmail)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/refresh", refreshBody{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decodeTokens(t, rec)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)
	assert.Nil(t, rotated.Principal)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/refresh", refreshBody{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTHENTICATION_FAILED", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/logout", refreshBody{RefreshToken: rotated.RefreshToken}, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodPost, "/api/v1/auth/logout", refreshBody{RefreshToken: rotated.RefreshToken}, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/refresh", refreshBody{RefreshToken: rotated.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllRequiresAccessToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/logout-all", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	first := decodeTokens(t, h.do(t, http.MethodPost, "/api/v1/auth/login", loginBody{Identifier: demoEmail, Password: demoPassword}, ""))
	second := decodeTokens(t, h.do(t, http.MethodPost, "/api/v1/auth/login", loginBody{Identifier: demoEmail, Password: demoPassword, RememberMe: true}, ""))

	rec = h.do(t, http.MethodPost, "/api/v1/auth/logout-all", nil, first.AccessToken)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, rt := range []string{first.RefreshToken, second.RefreshToken} {
		rec = h.do(t, http.MethodPost, "/api/v1/auth/refresh", refreshBody{RefreshToken: rt}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestLoginFailuresMapToStatus(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/auth/login", loginBody{Identifier: demoEmail, Password: "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTHENTICATION_FAILED", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", loginBody{Identifier: demoEmail}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, rec).Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"identifier": demoEmail, "extra": 1}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForwardedForHonoredOnlyFromTrustedPeer(t *testing.T) {
	h := newHarness(t, "192.0.2.0/24")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewBufferString(`{"identifier":"`+demoEmail+`","password":"wrong"}`))
	req.RemoteAddr = "192.0.2.10:51000"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	untrusted := newHarness(t)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewBufferString(`{"identifier":"`+demoEmail+`","password":"wrong"}`))
	req.RemoteAddr = "192.0.2.10:51000"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	untrusted.router.ServeHTTP(httptest.NewRecorder(), req)

	got := h.ledger.Attempts()
	require.Len(t, got, 1)
	assert.Equal(t, "198.51.100.23", got[0].IPAddress)

	got = untrusted.ledger.Attempts()
	require.Len(t, got, 1)
	assert.Equal(t, "192.0.2.10", got[0].IPAddress)
}

func TestRegistrationQuotaAndHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/auth/registration-quota", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quota struct {
		Limited   bool `json:"limited"`
		Remaining int  `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quota))
	assert.False(t, quota.Limited)
	assert.Equal(t, 5, quota.Remaining)

	rec = h.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token_store":"unchecked"`)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		providerAuth.ErrValidation:           http.StatusBadRequest,
		providerAuth.ErrRateLimited:          http.StatusTooManyRequests,
		providerAuth.ErrAuthenticationFailed: http.StatusUnauthorized,
		providerAuth.ErrAccountDisabled:      http.StatusForbidden,
		providerAuth.ErrEmailNotVerified:     http.StatusForbidden,
		providerAuth.ErrAccountLocked:        http.StatusLocked,
		providerAuth.ErrSessionLimit:         http.StatusConflict,
		providerAuth.ErrPrincipalNotFound:    http.StatusNotFound,
		providerAuth.ErrInternal:             http.StatusInternalServerError,
		errors.New("boom"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
