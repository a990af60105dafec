package user

import "errors"

var (
	// ErrUserNotFound indicates that no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials is returned for an unknown user and for a wrong
	// password alike, so callers cannot tell which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrValidation = errors.New("validation failed")
)
