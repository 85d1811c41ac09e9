package services

import "errors"

var (
	// ErrUsernameInvalid marks a candidate username that is empty or carries
	// characters that cannot appear in a route segment.
	ErrUsernameInvalid = errors.New("username is empty or contains invalid characters")

	// ErrEmailRequired is returned when signup confirmation is submitted
	// without an email and the provider supplied none.
	ErrEmailRequired = errors.New("an email address is required to finish signup")

	// ErrPendingSignupExpired is returned when a signup continuation token is
	// unknown or has timed out.
	ErrPendingSignupExpired = errors.New("pending signup not found or expired")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session not found or expired")
)
