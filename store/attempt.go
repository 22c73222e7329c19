package store

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a login attempt in the ledger.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeFailed           Outcome = "FAILED"
	OutcomeLocked           Outcome = "LOCKED"
	OutcomeRateLimited      Outcome = "RATE_LIMITED"
	OutcomeAccountDisabled  Outcome = "ACCOUNT_DISABLED"
	OutcomeEmailNotVerified Outcome = "EMAIL_NOT_VERIFIED"
)

// CountsAsFailure reports whether rows with this outcome feed the rate-limit
// window. Only credential failures count.
func (o Outcome) CountsAsFailure() bool {
	return o == OutcomeFailed || o == OutcomeLocked
}

// FailureReason is the ledger's detail column for unsuccessful attempts.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonInvalidPassword    FailureReason = "INVALID_PASSWORD"
	ReasonAccountNotFound    FailureReason = "ACCOUNT_NOT_FOUND"
	ReasonAccountLocked      FailureReason = "ACCOUNT_LOCKED"
	ReasonAccountDisabled    FailureReason = "ACCOUNT_DISABLED"
	ReasonEmailNotVerified   FailureReason = "EMAIL_NOT_VERIFIED"
	ReasonRateLimited        FailureReason = "RATE_LIMITED"
	ReasonTooManyAttempts    FailureReason = "TOO_MANY_ATTEMPTS"
	ReasonInvalidCredentials FailureReason = "INVALID_CREDENTIALS"
)

// LoginAttempt is an immutable ledger row.
type LoginAttempt struct {
	ID            uuid.UUID
	PrincipalID   *uuid.UUID
	Identifier    string
	IPAddress     string
	UserAgent     string
	Outcome       Outcome
	FailureReason FailureReason
	CreatedAt     time.Time
}
