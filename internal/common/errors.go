// Package common defines shared constants, sentinel errors and small helpers
// used across the GIMS server, its HTTP layer and the admin CLI. Callers
// should use errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Input errors.
	ErrValidation = errors.New("validation error")

	// Account errors.
	ErrDuplicateAccount   = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountLocked      = errors.New("account locked")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrSelfModification   = errors.New("cannot modify own account")

	// Auth errors (invalid or malformed session token).
	ErrInvalidToken = errors.New("invalid token")

	// Verification token lifecycle errors.
	ErrTokenNotFound = errors.New("invalid verification token")
	ErrTokenExpired  = errors.New("verification token has expired")
)
