package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateLink is returned when creating an Authorization whose
	// (provider, uid) pair is already linked to a different account.
	ErrDuplicateLink = errors.New("provider identity already linked to another account")

	// ErrUsernameTaken is returned when creating or renaming an account to a
	// username owned by a different account.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken is returned when creating an account with an email that
	// is already registered.
	ErrEmailTaken = errors.New("email already registered")
)
