// Package common provides shared constants, types, and utilities
// used across the VPN provider CLI adapter.
package common

import "errors"

// Sentinel errors for adapter operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Configuration errors.
	ErrConfigUnavailable = errors.New("provider override document unavailable")
	ErrConfigLoad        = errors.New("failed to load configuration")
	ErrConfigSave        = errors.New("failed to save configuration")

	// Provider errors.
	ErrUnknownProvider = errors.New("unknown provider")
	ErrBinaryMissing   = errors.New("provider binary not found")

	// Input errors.
	ErrValidation = errors.New("validation failed")

	// Process errors.
	ErrProcessFailure = errors.New("provider process failed")
	ErrTimeout        = errors.New("operation timed out")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
