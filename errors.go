package providerAuth

import "errors"

// Kind is the machine-readable class of an engine failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRateLimited
	KindAuthenticationFailed
	KindAccountDisabled
	KindEmailNotVerified
	KindAccountLocked
	KindSessionLimit
	KindInternal
	KindNotFound
)

// Code returns the stable wire code of k.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case KindAccountDisabled:
		return "ACCOUNT_DISABLED"
	case KindEmailNotVerified:
		return "EMAIL_NOT_VERIFIED"
	case KindAccountLocked:
		return "ACCOUNT_LOCKED"
	case KindSessionLimit:
		return "SESSION_LIMIT"
	case KindInternal:
		return "INTERNAL"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) String() string { return k.Code() }

// Error is the single error type returned by Engine operations. Compare
// with errors.Is against the Err* sentinels, or switch on [KindOf].
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Code()
	}
	return e.Message
}

// Unwrap exposes the underlying store or codec error for logging. The
// message never includes it.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrValidation: identifier or password missing from the request.
	ErrValidation = &Error{Kind: KindValidation, Message: "identifier and password are required"}
	// ErrRateLimited: too many failed attempts for the identifier or IP.
	ErrRateLimited = &Error{Kind: KindRateLimited, Message: "too many login attempts, try again later"}
	// ErrAuthenticationFailed never distinguishes unknown accounts from wrong
	// passwords.
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed, Message: "invalid identifier or password"}
	ErrAccountDisabled      = &Error{Kind: KindAccountDisabled, Message: "account is disabled"}
	ErrEmailNotVerified     = &Error{Kind: KindEmailNotVerified, Message: "email address is not verified"}
	ErrAccountLocked        = &Error{Kind: KindAccountLocked, Message: "account is temporarily locked"}
	ErrSessionLimit         = &Error{Kind: KindSessionLimit, Message: "too many active sessions"}
	ErrInternal             = &Error{Kind: KindInternal, Message: "internal error"}
	// ErrEngineNotReady is returned by engines that were not built through
	// [Builder.Build].
	ErrEngineNotReady = &Error{Kind: KindInternal, Message: "engine not initialized"}
	// ErrInvalidRouteMode is returned by Validate for an unknown route mode.
	ErrInvalidRouteMode = &Error{Kind: KindValidation, Message: "invalid route validation mode"}
	// ErrPrincipalNotFound is returned by admin operations on unknown ids.
	// Login never returns it.
	ErrPrincipalNotFound = &Error{Kind: KindNotFound, Message: "principal not found"}
)

func newError(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, cause: cause}
}

// KindOf returns the kind of err, or KindUnknown for errors that did not
// come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
