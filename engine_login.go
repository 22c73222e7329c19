package providerAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/providerAuth/internal/flows"
)

// Login authenticates req and, on success, issues an access and refresh
// token pair.
//
// Failures are *Error values of kind VALIDATION, RATE_LIMITED,
// AUTHENTICATION_FAILED, ACCOUNT_DISABLED, EMAIL_NOT_VERIFIED,
// ACCOUNT_LOCKED, SESSION_LIMIT or INTERNAL. An unknown identifier and a
// wrong password both produce AUTHENTICATION_FAILED.
//
// Tokens are returned only after the refresh record, the principal's login
// statistics and the SUCCESS ledger row have all been written. Those writes
// are not interrupted by cancellation of ctx; they are bounded by
// Config.StoreTimeout instead.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricLoginLatency, start)

	if req.IPAddress == "" {
		req.IPAddress = ClientIPFromContext(ctx)
	}
	if req.UserAgent == "" {
		req.UserAgent = userAgentFromContext(ctx)
	}

	res := e.flow.Login(ctx, flows.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		DeviceInfo: req.DeviceInfo,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})

	subject := auditSubject{
		identifier: res.Identifier,
		ip:         req.IPAddress,
		userAgent:  req.UserAgent,
	}
	if res.Principal != nil {
		subject.principalID = res.Principal.ID.String()
	}

	if res.Failure != flows.LoginFailureNone {
		err := e.mapLoginFailure(res)
		e.recordLoginFailure(ctx, res, subject, err)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	if res.PasswordUpgraded {
		e.metricInc(MetricPasswordUpgraded)
		e.emitAudit(ctx, auditEventPasswordUpgraded, true, subject, nil, nil)
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, subject, nil, func() map[string]string {
		return map[string]string{
			"remember_me":     boolString(req.RememberMe),
			"active_sessions": itoa(res.ActiveSessions),
		}
	})

	return &LoginResult{
		TokenPair: tokenPair(res.Access, res.Refresh),
		Principal: summarize(res.Principal),
	}, nil
}

func (e *Engine) mapLoginFailure(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureValidation:
		return ErrValidation
	case flows.LoginFailureRateLimited:
		return ErrRateLimited
	case flows.LoginFailureNotFound, flows.LoginFailureBadPassword:
		return ErrAuthenticationFailed
	case flows.LoginFailureDisabled:
		return ErrAccountDisabled
	case flows.LoginFailureUnverified:
		return ErrEmailNotVerified
	case flows.LoginFailureLocked:
		return ErrAccountLocked
	case flows.LoginFailureSessionLimit:
		return ErrSessionLimit
	default:
		return newError(ErrInternal, res.Err)
	}
}

func (e *Engine) recordLoginFailure(ctx context.Context, res flows.LoginResult, subject auditSubject, err error) {
	switch res.Failure {
	case flows.LoginFailureValidation:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricLoginInvalidRequest)
		return
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.logger.Info("providerAuth: login rate limited", "identifier", subject.identifier, "ip", subject.ip)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, subject, err, nil)
		return
	case flows.LoginFailureSessionLimit:
		e.metricInc(MetricSessionLimit)
		e.emitAudit(ctx, auditEventSessionLimit, false, subject, err, func() map[string]string {
			return map[string]string{"active_sessions": itoa(res.ActiveSessions)}
		})
		return
	case flows.LoginFailureInternal:
		e.metricInc(MetricInternalError)
		e.metricInc(MetricLoginInternal)
		e.logger.Error("providerAuth: login failed", "identifier", subject.identifier, "error", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, subject, err, nil)
		return
	}

	e.metricInc(MetricLoginFailure)
	switch res.Failure {
	case flows.LoginFailureNotFound:
		e.metricInc(MetricLoginUnknownAccount)
	case flows.LoginFailureBadPassword:
		e.metricInc(MetricLoginBadPassword)
	case flows.LoginFailureLocked:
		e.metricInc(MetricLoginLocked)
	case flows.LoginFailureDisabled:
		e.metricInc(MetricLoginDisabled)
	case flows.LoginFailureUnverified:
		e.metricInc(MetricLoginUnverified)
	}

	reason := loginFailureReason(res.Failure)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	if res.LockedNow {
		e.metricInc(MetricLockoutStarted)
		e.logger.Warn("providerAuth: account locked", "principal_id", subject.principalID)
		e.emitAudit(ctx, auditEventAccountLocked, false, subject, ErrAccountLocked, func() map[string]string {
			until := ""
			if res.Principal != nil {
				until = res.Principal.Lockout.LockedUntil().UTC().Format(time.RFC3339)
			}
			return map[string]string{"locked_until": until}
		})
	}
}

func loginFailureReason(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureNotFound:
		return "account_not_found"
	case flows.LoginFailureBadPassword:
		return "invalid_password"
	case flows.LoginFailureDisabled:
		return "account_disabled"
	case flows.LoginFailureUnverified:
		return "email_not_verified"
	case flows.LoginFailureLocked:
		return "account_locked"
	default:
		return "unknown"
	}
}
