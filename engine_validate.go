package providerAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/providerAuth/internal/flows"
	"github.com/MrEthical07/providerAuth/jwt"
)

// ValidateAccess verifies an access token using the engine's configured
// validation mode.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*AccessClaims, error) {
	return e.Validate(ctx, token, ModeInherit)
}

// Validate verifies an access token. routeMode overrides the engine mode;
// pass [ModeInherit] to use Config.ValidationMode.
//
// Invalid, expired and refresh tokens, unknown principals and (in strict
// mode) disabled or unverified principals all return
// AUTHENTICATION_FAILED.
func (e *Engine) Validate(ctx context.Context, token string, routeMode RouteMode) (*AccessClaims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricValidateLatency, start)

	res := e.flow.Validate(ctx, token, int(routeMode))
	switch res.Failure {
	case flows.ValidateFailureNone:
		return accessClaims(res.Claims), nil
	case flows.ValidateFailureInvalidRouteMode:
		return nil, ErrInvalidRouteMode
	case flows.ValidateFailureStore:
		e.metricInc(MetricInternalError)
		e.logger.Error("providerAuth: strict validation lookup failed", "error", res.Err)
		return nil, newError(ErrInternal, res.Err)
	default:
		return nil, newError(ErrAuthenticationFailed, res.Err)
	}
}

func accessClaims(c *jwt.Claims) *AccessClaims {
	out := &AccessClaims{
		PrincipalID:        c.UID,
		TokenID:            c.ID,
		Email:              c.Email,
		Role:               c.Role,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Specialization:     c.Specialization,
		VerificationStatus: c.VerificationStatus,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
