package audit

import "github.com/MrEthical07/providerAuth/store"

// Event types emitted by the engine.
const (
	EventLoginSuccess        = "login_success"
	EventLoginFailure        = "login_failure"
	EventLoginRateLimited    = "login_rate_limited"
	EventSessionLimit        = "login_session_limit"
	EventAccountLocked       = "account_locked"
	EventRefreshSuccess      = "refresh_success"
	EventRefreshInvalid      = "refresh_invalid"
	EventRefreshReuse        = "refresh_reuse_detected"
	EventLogoutSession       = "logout_session"
	EventLogoutAll           = "logout_all"
	EventAccountUnlocked     = "account_unlocked"
	EventAccountStatus       = "account_status_change"
	EventRegistrationLimited = "registration_rate_limited"
	EventPasswordUpgraded    = "password_hash_upgraded"
)

// OutcomeOf returns the login-ledger outcome that event corresponds to. An
// outcome already set on event wins. Login failures are split by their
// "reason" metadata; events with no ledger counterpart fall back to SUCCESS
// or FAILED.
func OutcomeOf(event Event) store.Outcome {
	if event.Outcome != "" {
		return event.Outcome
	}
	switch event.EventType {
	case EventLoginFailure:
		switch event.Metadata["reason"] {
		case "account_locked":
			return store.OutcomeLocked
		case "account_disabled":
			return store.OutcomeAccountDisabled
		case "email_not_verified":
			return store.OutcomeEmailNotVerified
		}
		return store.OutcomeFailed
	case EventLoginRateLimited, EventRegistrationLimited:
		return store.OutcomeRateLimited
	case EventAccountLocked:
		return store.OutcomeLocked
	}
	if event.Success {
		return store.OutcomeSuccess
	}
	return store.OutcomeFailed
}
