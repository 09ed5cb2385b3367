package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired occurs when the upstream token is no longer accepted.
	ErrSessionExpired = errors.New("session expired")
)
