package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for fetch operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPreconditionFailed indicates a conditional fetch failed because the
	// object changed; mid-download this is a consistency violation.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrRangeNotSatisfiable indicates the requested byte range is outside
	// the object, as happens for any range request against an empty object.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")

	// ErrThrottled indicates the request was rate limited by the store.
	ErrThrottled = errors.New("request throttled")

	// ErrUnavailable indicates the store is unavailable.
	ErrUnavailable = errors.New("source unavailable")
)

// SourceError wraps store-specific errors with operation context.
type SourceError struct {
	// Op is the operation that failed (e.g., "Fetch", "Properties").
	Op string

	// Bucket is the bucket or container name.
	Bucket string

	// Key is the object key.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Bucket, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates the object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsPreconditionFailed returns true if the error indicates a failed
// conditional fetch.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsRangeNotSatisfiable returns true if the error indicates the requested
// range lies outside the object.
func IsRangeNotSatisfiable(err error) bool {
	return errors.Is(err, ErrRangeNotSatisfiable)
}

// IsThrottled returns true if the error indicates the request was rate
// limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
