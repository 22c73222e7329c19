package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	providerAuth "github.com/MrEthical07/providerAuth"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims injected by a guard.
func ClaimsFromContext(ctx context.Context) (*providerAuth.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*providerAuth.AccessClaims)
	return claims, ok
}

// Guard rejects requests without a valid bearer access token. Store
// failures during strict validation answer 503; every other failure is 401.
func Guard(engine *providerAuth.Engine, routeMode providerAuth.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := engine.Validate(r.Context(), token, routeMode)
			if err != nil {
				if errors.Is(err, providerAuth.ErrInternal) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccess guards with the engine's configured validation mode.
func RequireAccess(engine *providerAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, providerAuth.ModeInherit)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", providerAuth.TokenTypeBearer)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
