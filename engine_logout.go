package providerAuth

import (
	"context"

	"github.com/google/uuid"
)

// Logout revokes the stored record of refreshToken. It never fails
// observably: malformed, expired or unknown tokens are ignored, and store
// errors are logged. Calling it again with the same token changes nothing.
func (e *Engine) Logout(ctx context.Context, refreshToken, ip string) {
	if !e.ready() {
		return
	}
	if ip == "" {
		ip = ClientIPFromContext(ctx)
	}

	res := e.flow.Logout(ctx, refreshToken)
	if res.Err != nil {
		if res.PrincipalID != "" {
			e.logger.Warn("providerAuth: logout revoke failed", "principal_id", res.PrincipalID, "error", res.Err)
		} else {
			e.logger.Debug("providerAuth: logout ignored unparseable token", "ip", ip)
		}
		return
	}
	if !res.Changed {
		return
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, auditSubject{principalID: res.PrincipalID, ip: ip}, nil, nil)
}

// LogoutAll revokes every refresh token owned by principalID. It returns an
// INTERNAL error only when the token store fails.
func (e *Engine) LogoutAll(ctx context.Context, principalID uuid.UUID) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	n, err := e.flow.LogoutAll(ctx, principalID)
	subject := auditSubject{principalID: principalID.String()}
	if err != nil {
		e.metricInc(MetricInternalError)
		e.logger.Error("providerAuth: logout all failed", "principal_id", principalID.String(), "error", err)
		e.emitAudit(ctx, auditEventLogoutAll, false, subject, ErrInternal, nil)
		return newError(ErrInternal, err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, subject, nil, func() map[string]string {
		return map[string]string{"revoked": itoa(int(n))}
	})
	return nil
}
