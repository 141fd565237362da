// Package common defines shared constants and sentinel errors used across
// the bookshelf server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Input validation errors. Wrapped with a field-specific message.
	ErrorValidation = errors.New("validation error")

	// Login errors (unknown email or wrong password).
	ErrorInvalidCredentials = errors.New("invalid email or password")

	// Auth errors (invalid, expired or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
