package providerAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/providerAuth/internal/flows"
	"github.com/google/uuid"
)

// DisableAccount deactivates principalID and revokes all of its refresh
// tokens. Outstanding access tokens stay valid until expiry under
// [ModeJWTOnly]; [ModeStrict] rejects them immediately.
func (e *Engine) DisableAccount(ctx context.Context, principalID uuid.UUID) error {
	return e.SetAccountActive(ctx, principalID, false)
}

// EnableAccount reactivates principalID.
func (e *Engine) EnableAccount(ctx context.Context, principalID uuid.UUID) error {
	return e.SetAccountActive(ctx, principalID, true)
}

// SetAccountActive writes the active flag of principalID. Repeat calls are
// harmless. Unknown ids return [ErrPrincipalNotFound].
func (e *Engine) SetAccountActive(ctx context.Context, principalID uuid.UUID, active bool) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	err := e.accountError(e.flow.SetAccountActive(ctx, principalID, active))
	if err == nil && !active {
		e.metricInc(MetricAccountDisabled)
	}
	action := "disable"
	if active {
		action = "enable"
	}
	e.emitAudit(ctx, auditEventAccountStatus, err == nil, auditSubject{principalID: principalID.String()}, err, func() map[string]string {
		return map[string]string{"action": action}
	})
	return err
}

func (e *Engine) accountError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flows.ErrSessionInvalidation):
		e.metricInc(MetricInternalError)
		e.logger.Error("providerAuth: session invalidation after disable failed", "error", err)
		return newError(ErrInternal, err)
	case isNotFound(err):
		return ErrPrincipalNotFound
	default:
		e.metricInc(MetricInternalError)
		e.logger.Error("providerAuth: account update failed", "error", err)
		return newError(ErrInternal, err)
	}
}
