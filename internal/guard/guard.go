// Package guard provides brute-force protection for login attempts.
// A guard tracks failed attempts per email and blocks further attempts
// once a threshold is crossed.
package guard

import "context"

// Guard is the login-attempts collaborator consumed by the login service.
// Implementations must use an atomic counter: a read-then-write counter
// would let concurrent failed attempts race past the threshold.
type Guard interface {
	// IsBlocked reports whether login attempts for this email are
	// currently blocked.
	IsBlocked(ctx context.Context, email string) (bool, error)

	// RecordFailedAttempt counts one failed attempt for this email.
	RecordFailedAttempt(ctx context.Context, email string) error

	// ClearAttempts resets the counter after a successful login.
	ClearAttempts(ctx context.Context, email string) error
}

// NoopGuard is a Guard that never blocks. Used when brute-force
// protection is disabled in configuration.
type NoopGuard struct{}

// IsBlocked always reports false.
func (NoopGuard) IsBlocked(ctx context.Context, email string) (bool, error) {
	return false, nil
}

// RecordFailedAttempt is a no-op.
func (NoopGuard) RecordFailedAttempt(ctx context.Context, email string) error {
	return nil
}

// ClearAttempts is a no-op.
func (NoopGuard) ClearAttempts(ctx context.Context, email string) error {
	return nil
}

// Ensure NoopGuard implements Guard
var _ Guard = NoopGuard{}
