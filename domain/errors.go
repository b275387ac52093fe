package domain

import "errors"

var (
	// ErrInvalidCredentials covers both registration email collisions and
	// login mismatches so the two are indistinguishable to a probing caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("resource not found")
)

// ValidationError reports a malformed or internally inconsistent input shape.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }
