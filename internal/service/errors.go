package service

import (
	"errors"
	"fmt"
)

// Errors the transport layer is expected to discriminate on.
var (
	// ErrQuotaExceeded means the user has no remaining allocations.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrAllocationExhausted means no unique number could be produced
	// within the retry budget. Logged as an anomaly, not a user error.
	ErrAllocationExhausted = errors.New("allocation retries exhausted")
	// ErrNotAuthorized means a non-admin attempted an admin operation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidGrant means a grant would drive the extra bonus negative.
	ErrInvalidGrant = errors.New("invalid grant amount")
	// ErrStoreUnavailable wraps persistence failures that a caller may
	// retry. The underlying transaction has been rolled back.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// storeErr tags a database failure as retryable while keeping the cause
// in the message.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
