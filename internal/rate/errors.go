package rate

import "errors"

var (
	// ErrRateLimited reports that the subject has used its budget for the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps failures of the backing counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
