// Package apierrors provides shared error types for the Kiebitz client.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingKeys is returned when an operation needs local key material or
	// a secret the actor does not hold. It is never the result of a network call.
	ErrMissingKeys = errors.New("required keys are missing")

	// ErrUnauthorized is returned when the relay rejects a call with code 401.
	// Depending on the call site this means the actor is not verified yet or
	// the queue token was already used.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDoubleBooking is returned when a queue token is used for a second booking.
	ErrDoubleBooking = errors.New("token already used for a booking")

	// ErrUnexpected is returned when a local invariant is violated, such as an
	// impossible slot/booking combination or a failed signature check.
	ErrUnexpected = errors.New("unexpected error")

	// ErrRateLimited is returned when the relay rejects a call with code 429.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// KiebitzError is implemented by all client errors.
type KiebitzError interface {
	error
	KiebitzError() // marker method
}

// AuthError reports that required local keys or secrets are absent.
type AuthError struct {
	// Role is the actor that lacks the material ("provider", "mediator", ...).
	Role string
	// Missing names what is absent, e.g. "signing key" or "queue token".
	Missing string
}

func (e *AuthError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("missing %s", e.Missing)
	}
	return fmt.Sprintf("%s: missing %s", e.Role, e.Missing)
}

// Is implements errors.Is for sentinel error matching.
func (e *AuthError) Is(target error) bool {
	return target == ErrMissingKeys
}

// KiebitzError implements the KiebitzError interface.
func (e *AuthError) KiebitzError() {}

// TransportError represents a call the relay answered with an error.
type TransportError struct {
	Method  string
	Code    int
	Message string
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: relay error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: relay error %d", e.Method, e.Code)
}

// Is implements errors.Is for sentinel error matching.
func (e *TransportError) Is(target error) bool {
	switch e.Code {
	case 401:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// KiebitzError implements the KiebitzError interface.
func (e *TransportError) KiebitzError() {}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// KiebitzError implements the KiebitzError interface.
func (e *NetworkError) KiebitzError() {}

// CryptoError represents a failed cryptographic operation.
type CryptoError struct {
	// Op is one of "keygen", "sign", "encrypt", "decrypt", "derive".
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CryptoError) Unwrap() error {
	return e.Err
}

// KiebitzError implements the KiebitzError interface.
func (e *CryptoError) KiebitzError() {}

// UnexpectedError reports a violated invariant. Err, when set, is the
// lower-level cause.
type UnexpectedError struct {
	Message string
	Err     error
}

func (e *UnexpectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("unexpected: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *UnexpectedError) Is(target error) bool {
	return target == ErrUnexpected
}

// KiebitzError implements the KiebitzError interface.
func (e *UnexpectedError) KiebitzError() {}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is for sentinel error matching.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// KiebitzError implements the KiebitzError interface.
func (e *NotFoundError) KiebitzError() {}

// DoubleBookingError reports that the relay refused a booking because the
// user's queue token already holds one.
type DoubleBookingError struct {
	AppointmentID string
	Err           error
}

func (e *DoubleBookingError) Error() string {
	return fmt.Sprintf("appointment %s: token already used for a booking", e.AppointmentID)
}

// Unwrap returns the underlying error.
func (e *DoubleBookingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DoubleBookingError) Is(target error) bool {
	return target == ErrDoubleBooking
}

// KiebitzError implements the KiebitzError interface.
func (e *DoubleBookingError) KiebitzError() {}

// Unexpectedf builds an UnexpectedError with a formatted message.
func Unexpectedf(format string, args ...any) error {
	return &UnexpectedError{Message: fmt.Sprintf(format, args...)}
}

// Crypto wraps err in a CryptoError for op. A nil err stays nil.
func Crypto(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CryptoError{Op: op, Err: err}
}

// Verification wraps a failed signature check.
func Verification(what string, err error) error {
	if err == nil {
		return nil
	}
	return &UnexpectedError{Message: what + ": verification failed", Err: err}
}
