package domain

import "errors"

// Domain errors. Handlers map these to HTTP statuses; services wrap them
// with %w so callers can match with errors.Is.
var (
	// ErrInvalidCredentials covers a wrong email, wrong password, or
	// malformed email on login. The message is deliberately identical for
	// every sub-case so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountNotActive indicates the account's status blocks login.
	// The wrapped message may name the specific reason, since a correct
	// password has already confirmed the account exists.
	ErrAccountNotActive = errors.New("account is not active")

	// ErrLoginBlocked indicates too many failed login attempts.
	ErrLoginBlocked = errors.New("too many failed login attempts")

	// ErrInvalidRefreshToken indicates a missing, malformed, expired or
	// wrongly-typed refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Registration errors.
	ErrInvalidRegistration   = errors.New("invalid registration data")
	ErrEmailAlreadyExists    = errors.New("email is already registered")
	ErrUsernameAlreadyExists = errors.New("username is already taken")
	ErrPasswordMismatch      = errors.New("passwords do not match")

	// Account state and authority errors.
	ErrUserNotFound     = errors.New("user not found")
	ErrAccountSuspended = errors.New("suspended accounts must be unsuspended by an admin")
	ErrSelfSuspension   = errors.New("users cannot suspend themselves")
	ErrSelfRoleChange   = errors.New("users cannot change their own role")
	ErrPermissionDenied = errors.New("insufficient permissions")

	// Verification errors.
	ErrInvalidVerification = errors.New("invalid or expired verification token")
	ErrAlreadyVerified     = errors.New("email already verified")
)

// IsRegistrationError reports whether err belongs to the registration
// error family.
func IsRegistrationError(err error) bool {
	return errors.Is(err, ErrInvalidRegistration) ||
		errors.Is(err, ErrEmailAlreadyExists) ||
		errors.Is(err, ErrUsernameAlreadyExists) ||
		errors.Is(err, ErrPasswordMismatch)
}
