// Package repository defines data access interfaces for Meridian Auth.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while
// keeping the service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/meridian-auth/internal/domain"
)

// ListOptions controls pagination and filtering for list operations.
type ListOptions struct {
	Limit  int
	Offset int

	// Filters narrows the result set by exact column match
	// (e.g. "role" -> "admin", "status" -> "active").
	Filters map[string]string
}

// =============================================================================
// User Repository (the user directory)
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by normalized (lowercase) email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by normalized (lowercase) username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername checks if a user with the given username exists.
	// The check is case-insensitive.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Save upserts a user by ID in a single atomic write.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)

	// Delete deletes a user by ID. Returns false if the user did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns users with pagination and optional filters.
	List(ctx context.Context, opts ListOptions) ([]*domain.User, error)

	// Count returns the number of users matching the filters.
	Count(ctx context.Context, filters map[string]string) (int64, error)

	// GetByRole returns all users with the given role.
	GetByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// Search matches users by name, email or username substring.
	Search(ctx context.Context, query string, limit int) ([]*domain.User, error)
}

// =============================================================================
// Permission Repository
// =============================================================================

// PermissionRepository defines the interface for permission grant storage.
// Permissions are first-class rows, not a blob on the user record.
type PermissionRepository interface {
	// Save upserts a permission grant by ID.
	Save(ctx context.Context, perm *domain.Permission) error

	// GetByID retrieves a permission by ID.
	GetByID(ctx context.Context, id string) (*domain.Permission, error)

	// ListByUserID returns all grants (including inactive ones) for a user.
	ListByUserID(ctx context.Context, userID string) ([]*domain.Permission, error)

	// ReplaceForUser atomically replaces a user's grants with the given
	// set. Used when a role change regenerates defaults.
	ReplaceForUser(ctx context.Context, userID string, perms []*domain.Permission) error

	// Deactivate soft-invalidates a grant by ID.
	Deactivate(ctx context.Context, id string) error
}

// =============================================================================
// Session Repository
// =============================================================================

// SessionRepository defines the interface for session storage.
type SessionRepository interface {
	// Save upserts a session by ID.
	Save(ctx context.Context, sess *domain.Session) error

	// GetByID retrieves a session by ID.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// ListActiveByUserID returns the active, unexpired sessions for a user.
	ListActiveByUserID(ctx context.Context, userID string) ([]*domain.Session, error)

	// Deactivate invalidates a single session by ID.
	Deactivate(ctx context.Context, id string) error

	// DeactivateAllForUser invalidates every session for a user. Called on
	// role change, suspension and logout-everywhere.
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes sessions past their expiry.
	DeleteExpired(ctx context.Context) (int64, error)
}
