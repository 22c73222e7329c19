package providerAuth

import (
	"context"

	"github.com/MrEthical07/providerAuth/internal/flows"
)

// Refresh exchanges a refresh token for a new pair. The presented token is
// single-use: its stored record is revoked in the same store operation that
// creates the successor, so presenting it again fails.
//
// Every failure, including store faults, is reported as
// AUTHENTICATION_FAILED. The cause is logged, never returned.
func (e *Engine) Refresh(ctx context.Context, refreshToken, ip string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if ip == "" {
		ip = ClientIPFromContext(ctx)
	}

	res := e.flow.Refresh(ctx, refreshToken, ip)
	subject := auditSubject{principalID: res.PrincipalID, ip: ip}

	if res.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		event := auditEventRefreshInvalid
		switch res.Failure {
		case flows.RefreshFailureReuse, flows.RefreshFailureRecordInactive:
			e.metricInc(MetricRefreshReuseDetected)
			event = auditEventRefreshReuse
			e.logger.Warn("providerAuth: refresh token reused",
				"principal_id", res.PrincipalID, "ip", ip, "reason", res.Failure.String())
		case flows.RefreshFailureStore, flows.RefreshFailureIssue:
			e.metricInc(MetricInternalError)
			e.metricInc(MetricRefreshInternal)
			e.logger.Error("providerAuth: refresh failed",
				"principal_id", res.PrincipalID, "reason", res.Failure.String(), "error", res.Err)
		case flows.RefreshFailurePrincipalNotFound, flows.RefreshFailurePrincipalStatus:
			e.metricInc(MetricRefreshPrincipalRejected)
			e.logger.Debug("providerAuth: refresh rejected",
				"principal_id", res.PrincipalID, "reason", res.Failure.String(), "error", res.Err)
		default:
			e.metricInc(MetricRefreshInvalidToken)
			e.logger.Debug("providerAuth: refresh rejected",
				"principal_id", res.PrincipalID, "reason", res.Failure.String(), "error", res.Err)
		}
		reason := res.Failure.String()
		e.emitAudit(ctx, event, false, subject, ErrAuthenticationFailed, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, newError(ErrAuthenticationFailed, res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, subject, nil, nil)
	return &RefreshResult{TokenPair: tokenPair(res.Access, res.Refresh)}, nil
}
