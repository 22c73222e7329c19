package providerAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

// UnlockAccount clears the failed-attempt counter and lockout of
// principalID. Ledger rows are untouched, so the login rate limit still
// applies until they age out of the window.
func (e *Engine) UnlockAccount(ctx context.Context, principalID uuid.UUID) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	err := e.accountError(e.flow.UnlockAccount(ctx, principalID))
	if err == nil {
		e.metricInc(MetricAccountUnlocked)
	}
	e.emitAudit(ctx, auditEventAccountUnlocked, err == nil, auditSubject{principalID: principalID.String()}, err, nil)
	return err
}

// ActiveSessions returns the number of unrevoked, unexpired refresh tokens
// held by principalID.
func (e *Engine) ActiveSessions(ctx context.Context, principalID uuid.UUID) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.tokens.CountActiveForPrincipal(ctx, principalID, e.now())
	if err != nil {
		return 0, newError(ErrInternal, err)
	}
	return n, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
