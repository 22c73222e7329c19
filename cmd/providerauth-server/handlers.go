package main

import (
	"encoding/json"
	"net/http"
	"time"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 16 << 10

type loginBody struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	DeviceInfo string `json:"deviceInfo"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken      string             `json:"accessToken"`
	RefreshToken     string             `json:"refreshToken"`
	TokenType        string             `json:"tokenType"`
	ExpiresIn        int64              `json:"expiresIn"`
	RefreshExpiresIn int64              `json:"refreshExpiresIn"`
	Principal        *principalResponse `json:"provider,omitempty"`
}

type principalResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"fullName"`
	Role               string     `json:"role"`
	Specialization     string     `json:"specialization"`
	VerificationStatus string     `json:"verificationStatus"`
	LoginCount         int        `json:"loginCount"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newRouter(engine *providerAuth.Engine, clientIP middleware.ClientIP, metrics http.Handler) http.Handler {
	guard := middleware.RequireAccess(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", loginHandler(engine))
	mux.HandleFunc("POST /api/v1/auth/refresh", refreshHandler(engine))
	mux.HandleFunc("POST /api/v1/auth/logout", logoutHandler(engine))
	mux.Handle("POST /api/v1/auth/logout-all", guard(logoutAllHandler(engine)))
	mux.Handle("GET /api/v1/auth/me", guard(http.HandlerFunc(meHandler)))
	mux.HandleFunc("GET /api/v1/auth/registration-quota", registrationQuotaHandler(engine))
	mux.HandleFunc("GET /healthz", healthHandler(engine))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return clientIP.Middleware(mux)
}

func loginHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginBody
		if !decode(w, r, &body) {
			return
		}
		// IP and User-Agent come from the context set by ClientIP.
		res, err := engine.Login(r.Context(), providerAuth.LoginRequest{
			Identifier: body.Identifier,
			Password:   body.Password,
			RememberMe: body.RememberMe,
			DeviceInfo: body.DeviceInfo,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		out := toTokenResponse(res.TokenPair)
		out.Principal = toPrincipalResponse(res.Principal)
		writeJSON(w, http.StatusOK, out)
	}
}

func refreshHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshBody
		if !decode(w, r, &body) {
			return
		}
		res, err := engine.Refresh(r.Context(), body.RefreshToken, "")
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(res.TokenPair))
	}
}

func logoutHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshBody
		if !decode(w, r, &body) {
			return
		}
		engine.Logout(r.Context(), body.RefreshToken, "")
		w.WriteHeader(http.StatusNoContent)
	}
}

func logoutAllHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.ClaimsFromContext(r.Context())
		id, err := uuid.Parse(claims.PrincipalID)
		if err != nil {
			writeError(w, providerAuth.ErrAuthenticationFailed)
			return
		}
		if err := engine.LogoutAll(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 claims.PrincipalID,
		"email":              claims.Email,
		"role":               claims.Role,
		"firstName":          claims.FirstName,
		"lastName":           claims.LastName,
		"specialization":     claims.Specialization,
		"verificationStatus": claims.VerificationStatus,
		"expiresAt":          claims.ExpiresAt,
	})
}

func registrationQuotaHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := providerAuth.ClientIPFromContext(ctx)
		writeJSON(w, http.StatusOK, map[string]any{
			"limited":        engine.RegistrationLimited(ctx, ip),
			"remaining":      engine.RegistrationRemaining(ctx, ip),
			"resetInSeconds": int64(engine.RegistrationResetIn(ctx, ip) / time.Second),
		})
	}
}

func healthHandler(engine *providerAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := engine.Health(r.Context())
		backends := make(map[string]string, len(h.Backends))
		for _, b := range h.Backends {
			switch {
			case !b.Checked:
				backends[b.Name] = "unchecked"
			case b.Available:
				backends[b.Name] = "up"
			default:
				backends[b.Name] = "down"
			}
		}
		status := http.StatusOK
		if !h.Healthy() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"healthy": h.Healthy(), "backends": backends})
	}
}

func toTokenResponse(p providerAuth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresIn:        p.ExpiresIn,
		RefreshExpiresIn: p.RefreshExpiresIn,
	}
}

func toPrincipalResponse(p providerAuth.PrincipalSummary) *principalResponse {
	out := &principalResponse{
		ID:                 p.ID,
		Email:              p.Email,
		FullName:           p.FullName,
		Role:               p.Role,
		Specialization:     p.Specialization,
		VerificationStatus: p.VerificationStatus,
		LoginCount:         p.LoginCount,
	}
	if !p.LastLogin.IsZero() {
		t := p.LastLogin
		out.LastLogin = &t
	}
	return out
}

// statusFor maps engine error kinds to HTTP statuses.
func statusFor(err error) int {
	switch providerAuth.KindOf(err) {
	case providerAuth.KindValidation:
		return http.StatusBadRequest
	case providerAuth.KindRateLimited:
		return http.StatusTooManyRequests
	case providerAuth.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case providerAuth.KindAccountDisabled, providerAuth.KindEmailNotVerified:
		return http.StatusForbidden
	case providerAuth.KindAccountLocked:
		return http.StatusLocked
	case providerAuth.KindSessionLimit:
		return http.StatusConflict
	case providerAuth.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := providerAuth.KindOf(err).Code()
	msg := err.Error()
	if providerAuth.KindOf(err) == providerAuth.KindUnknown {
		code, msg = providerAuth.KindInternal.Code(), providerAuth.ErrInternal.Message
	}
	writeJSON(w, statusFor(err), errorResponse{Code: code, Message: msg})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: providerAuth.KindValidation.Code(), Message: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
