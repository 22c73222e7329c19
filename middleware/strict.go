package middleware

import (
	"net/http"

	providerAuth "github.com/MrEthical07/providerAuth"
)

func RequireStrict(engine *providerAuth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, providerAuth.ModeStrict)
}
