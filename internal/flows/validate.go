package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// ModeResolverConfig allows host packages to resolve route/engine validation modes
// without importing host package-specific enums (avoids import cycles).
type ModeResolverConfig struct {
	ModeInherit int
	ModeJWTOnly int
	ModeStrict  int
}

// ResolveRouteMode resolves a route mode override against engine default mode.
func ResolveRouteMode(routeMode, engineMode int, cfg ModeResolverConfig) (int, bool) {
	switch routeMode {
	case cfg.ModeInherit:
		switch engineMode {
		case cfg.ModeJWTOnly, cfg.ModeStrict:
			return engineMode, true
		default:
			return 0, false
		}
	case cfg.ModeJWTOnly, cfg.ModeStrict:
		return routeMode, true
	default:
		return 0, false
	}
}

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureUnauthorized
	ValidateFailureInvalidRouteMode
	ValidateFailurePrincipalNotFound
	ValidateFailureDisabled
	ValidateFailureUnverified
	ValidateFailureStore
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess      func(string) (*jwt.Claims, error)
	ResolveRouteMode func(int) (int, error)
	ModeJWTOnly      int
	Credentials      store.CredentialStore
}

// RunValidate verifies an access token. Strict mode additionally requires
// the principal to still exist and be active and verified.
func RunValidate(ctx context.Context, tokenStr string, routeMode int, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
	}

	effectiveMode, err := deps.ResolveRouteMode(routeMode)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureInvalidRouteMode, Err: err}
	}
	if effectiveMode == deps.ModeJWTOnly {
		return ValidateResult{Claims: claims}
	}

	principalID, err := uuid.Parse(claims.UID)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
	}
	p, err := deps.Credentials.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ValidateResult{Failure: ValidateFailurePrincipalNotFound, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureStore, Err: err}
	}
	if !p.Active {
		return ValidateResult{Failure: ValidateFailureDisabled}
	}
	if !p.EmailVerified {
		return ValidateResult{Failure: ValidateFailureUnverified}
	}
	return ValidateResult{Claims: claims}
}
