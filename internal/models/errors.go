package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// OTP flow errors
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrVerificationMissing = errors.New("no confirmed verification for user")

	// ErrIntegrity indicates a sealed secret failed authentication on open.
	ErrIntegrity = errors.New("ciphertext integrity check failed")
)
