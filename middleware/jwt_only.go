package middleware

import (
	"net/http"

	providerAuth "github.com/MrEthical07/providerAuth"
)

// RequireJWTOnly returns middleware that overrides the validation mode to
// [providerAuth.ModeJWTOnly] for the wrapped handler, skipping the
// credential store entirely.
func RequireJWTOnly(engine *providerAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, providerAuth.ModeJWTOnly)
}
