package providerAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/providerAuth/internal/rate"
)

// RegistrationLimited reports whether ip has used its registration budget
// for the current window. It always returns false when the throttle is
// disabled.
func (e *Engine) RegistrationLimited(ctx context.Context, ip string) bool {
	if e == nil || e.registration == nil {
		return false
	}
	if !e.registration.IsLimited(ctx, ip) {
		return false
	}
	e.metricInc(MetricRegistrationLimited)
	e.emitAudit(ctx, auditEventRegistrationLimit, false, auditSubject{ip: ip}, ErrRateLimited, nil)
	return true
}

// RecordRegistration counts one registration request from ip. It returns
// RATE_LIMITED once the count exceeds the budget. Store failures are
// swallowed when the throttle fails open.
func (e *Engine) RecordRegistration(ctx context.Context, ip string) error {
	if e == nil || e.registration == nil {
		return nil
	}
	_, err := e.registration.Increment(ctx, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricRegistrationLimited)
		e.emitAudit(ctx, auditEventRegistrationLimit, false, auditSubject{ip: ip}, ErrRateLimited, nil)
		return ErrRateLimited
	case e.config.Registration.FailOpen:
		return nil
	default:
		return newError(ErrInternal, err)
	}
}

// RegistrationRemaining returns how many registration requests ip may still
// make in the current window.
func (e *Engine) RegistrationRemaining(ctx context.Context, ip string) int {
	if e == nil {
		return 0
	}
	if e.registration == nil {
		return e.config.Registration.MaxRequests
	}
	return e.registration.Remaining(ctx, ip)
}

// RegistrationResetIn returns the time until the registration window of ip
// resets, or zero when no window is open.
func (e *Engine) RegistrationResetIn(ctx context.Context, ip string) time.Duration {
	if e == nil || e.registration == nil {
		return 0
	}
	return e.registration.TimeUntilReset(ctx, ip)
}

// ResetRegistrationLimit clears the registration counter for ip.
func (e *Engine) ResetRegistrationLimit(ctx context.Context, ip string) error {
	if e == nil || e.registration == nil {
		return nil
	}
	if err := e.registration.Reset(ctx, ip); err != nil {
		return newError(ErrInternal, err)
	}
	return nil
}
