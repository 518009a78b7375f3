package kiebitz

import (
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingKeys is returned when an operation needs local keys, a queue
	// token or a booking the actor does not hold.
	ErrMissingKeys = apierrors.ErrMissingKeys

	// ErrUnauthorized is returned when the relay rejects a call with 401.
	ErrUnauthorized = apierrors.ErrUnauthorized

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = apierrors.ErrNotFound

	// ErrDoubleBooking is returned when a queue token already holds a booking.
	ErrDoubleBooking = apierrors.ErrDoubleBooking

	// ErrUnexpected is returned when a local invariant is violated.
	ErrUnexpected = apierrors.ErrUnexpected

	// ErrRateLimited is returned when the relay rejects a call with 429.
	ErrRateLimited = apierrors.ErrRateLimited

	// ErrVerificationFailed is wrapped by every failed signature check.
	ErrVerificationFailed = crypto.ErrVerificationFailed

	// ErrDecryptionFailed is wrapped when an envelope does not open.
	ErrDecryptionFailed = crypto.ErrDecryptionFailed

	// ErrInvalidSecret is returned when a human-readable secret is malformed.
	ErrInvalidSecret = crypto.ErrInvalidSecret
)

// KiebitzError is implemented by all client errors.
type KiebitzError = apierrors.KiebitzError

// Error types. See package apierrors for field documentation.
type (
	AuthError          = apierrors.AuthError
	TransportError     = apierrors.TransportError
	NetworkError       = apierrors.NetworkError
	CryptoError        = apierrors.CryptoError
	UnexpectedError    = apierrors.UnexpectedError
	NotFoundError      = apierrors.NotFoundError
	DoubleBookingError = apierrors.DoubleBookingError
)
