package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

// UserService handles administrative user management: role changes,
// suspension, permission grants, listing and search.
type UserService struct {
	users       repository.UserRepository
	permissions repository.PermissionRepository
	sessions    repository.SessionRepository
	logger      zerolog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	users repository.UserRepository,
	permissions repository.PermissionRepository,
	sessions repository.SessionRepository,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		permissions: permissions,
		sessions:    sessions,
		logger:      logger.With().Str("service", "user").Logger(),
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// ChangeRole updates a user's role. The permission list is regenerated
// from the new role's defaults (custom grants are not preserved), the
// stored permission rows are replaced, and every active session for the
// user is invalidated so the next request re-authenticates with fresh
// claims.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID string, newRole domain.Role) (*domain.User, error) {
	if !newRole.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRegistration, newRole)
	}

	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target = target.Clone()
	if err := target.ChangeRole(newRole, actor); err != nil {
		return nil, err
	}

	saved, err := s.users.Save(ctx, target)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", targetID).Msg("failed to save role change")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.permissions.ReplaceForUser(ctx, saved.ID, domain.DefaultPermissionSet(saved.ID, newRole)); err != nil {
		s.logger.Error().Err(err).Str("user_id", saved.ID).Msg("failed to replace permission rows")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	n, err := s.sessions.DeactivateAllForUser(ctx, saved.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", saved.ID).Msg("failed to invalidate sessions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", saved.ID).
		Str("role", string(newRole)).
		Str("changed_by", actorID).
		Int64("sessions_invalidated", n).
		Msg("role changed")

	return saved, nil
}

// Suspend suspends a user account and invalidates all their sessions.
func (s *UserService) Suspend(ctx context.Context, actorID, targetID, reason string) (*domain.User, error) {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target = target.Clone()
	if err := target.Suspend(reason, actor); err != nil {
		return nil, err
	}

	saved, err := s.users.Save(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if _, err := s.sessions.DeactivateAllForUser(ctx, saved.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", saved.ID).Msg("failed to invalidate sessions")
	}

	s.logger.Info().
		Str("user_id", saved.ID).
		Str("suspended_by", actorID).
		Msg("user suspended")

	return saved, nil
}

// Activate transitions a pending or inactive account to active. Only an
// actor with manage rights over the target may do this; suspended
// accounts stay suspended.
func (s *UserService) Activate(ctx context.Context, actorID, targetID string) (*domain.User, error) {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageUser(target) {
		return nil, domain.ErrPermissionDenied
	}

	target = target.Clone()
	if err := target.Activate(); err != nil {
		return nil, err
	}
	saved, err := s.users.Save(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return saved, nil
}

// GrantPermission adds a named permission to a user, both in the flat
// claim list and as a first-class permission row.
func (s *UserService) GrantPermission(ctx context.Context, actorID, targetID, name string, typ domain.PermissionType, scope domain.PermissionScope) (*domain.User, error) {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target = target.Clone()
	if err := target.GrantPermission(name, actor); err != nil {
		return nil, err
	}

	saved, err := s.users.Save(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	perm := domain.NewPermission(saved.ID, name, typ, scope, actor.ID)
	if err := s.permissions.Save(ctx, perm); err != nil {
		s.logger.Error().Err(err).Str("user_id", saved.ID).Msg("failed to save permission row")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", saved.ID).
		Str("permission", name).
		Str("granted_by", actorID).
		Msg("permission granted")

	return saved, nil
}

// RevokePermission removes a named permission from the flat claim list
// and deactivates the matching permission rows. Rows are soft-
// invalidated, never hard-deleted, so the grant history survives.
func (s *UserService) RevokePermission(ctx context.Context, actorID, targetID, name string) (*domain.User, error) {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target = target.Clone()
	if err := target.RevokePermission(name, actor); err != nil {
		return nil, err
	}

	saved, err := s.users.Save(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	rows, err := s.permissions.ListByUserID(ctx, saved.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	for _, p := range rows {
		if p.Name == name && p.Active {
			if err := s.permissions.Deactivate(ctx, p.ID); err != nil {
				s.logger.Error().Err(err).Str("permission_id", p.ID).Msg("failed to deactivate permission row")
			}
		}
	}

	return saved, nil
}

// List returns users with pagination and optional filters.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// GetByRole returns all users with the given role.
func (s *UserService) GetByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	users, err := s.users.GetByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// Search matches users by name, email or username substring.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	users, err := s.users.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// Delete removes a user by ID.
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !actor.CanManageUser(target) {
		return domain.ErrPermissionDenied
	}

	ok, err := s.users.Delete(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, err := s.sessions.DeactivateAllForUser(ctx, targetID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", targetID).Msg("failed to invalidate sessions of deleted user")
	}
	return nil
}

// Sessions returns the active sessions for a user.
func (s *UserService) Sessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := s.sessions.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return sessions, nil
}
