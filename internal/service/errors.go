// Package service provides the authentication and user-management use
// cases for Meridian Auth.
package service

import "errors"

// Common service errors. Domain-level errors (invalid credentials,
// account state, registration validation) live in the domain package;
// the service layer only adds the internal failure wrapper.
var (
	// ErrInternalError indicates an unexpected infrastructure failure.
	ErrInternalError = errors.New("internal server error")

	// ErrVerificationNotConfigured indicates an email-verification
	// operation was called without a configured sender.
	ErrVerificationNotConfigured = errors.New("email verification is not configured")
)
