package auth

import "errors"

// Sentinel errors returned by the identity core. Handlers map these onto
// the response envelope; anything else is treated as internal.
var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOrExpiredToken covers unknown, expired and already-consumed
	// invitation tokens and 2FA codes alike; callers cannot tell which.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrConflict is returned when inviting an address that is already
	// invited or registered.
	ErrConflict = errors.New("already invited or registered")

	ErrNotFound           = errors.New("not found")
	ErrUnsupportedChannel = errors.New("unsupported delivery channel")
	ErrAccountDisabled    = errors.New("account is disabled")

	// ErrWeakPassword wraps the policy violations reported by
	// ValidatePassword.
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrDeliveryFailure means the notification send failed or timed out;
	// any paired datastore write has been rolled back by the time a caller
	// sees this error.
	ErrDeliveryFailure = errors.New("notification delivery failed")
)
