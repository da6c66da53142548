package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/meridian-auth/internal/domain"
)

func seedAdmin(users *MockUserRepository) *domain.User {
	admin := domain.NewUser("admin@example.com", "admin", "The Admin", "hash", domain.RoleAdmin)
	admin.Status = domain.StatusActive
	users.add(admin)
	return admin
}

func seedMember(users *MockUserRepository) *domain.User {
	member := domain.NewUser("member@example.com", "member", "A Member", "hash", domain.RoleUser)
	member.Status = domain.StatusActive
	users.add(member)
	return member
}

func newUserService(users *MockUserRepository, perms *MockPermissionRepository, sessions *MockSessionRepository) *UserService {
	return NewUserService(users, perms, sessions, zerolog.Nop())
}

func TestUserService_ChangeRole_ResetsPermissionsAndSessions(t *testing.T) {
	users := NewMockUserRepository()
	perms := NewMockPermissionRepository()
	sessions := NewMockSessionRepository()
	admin := seedAdmin(users)
	member := seedMember(users)

	// Custom grant that must not survive the role change.
	member.Permissions = append(member.Permissions, "export:analytics")
	users.add(member)

	sess := domain.NewSession(member.ID, "tok", "", time.Hour)
	require.NoError(t, sessions.Save(context.Background(), sess))

	svc := newUserService(users, perms, sessions)

	updated, err := svc.ChangeRole(context.Background(), admin.ID, member.ID, domain.RoleViewer)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleViewer, updated.Role)
	assert.ElementsMatch(t, domain.DefaultPermissionNames(domain.RoleViewer), updated.Permissions)
	assert.NotContains(t, updated.Permissions, "export:analytics")

	rows, err := perms.ListByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Len(t, rows, len(domain.DefaultPermissionNames(domain.RoleViewer)))

	active, err := sessions.ListActiveByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Empty(t, active, "sessions must die with the old role")
}

func TestUserService_ChangeRole_Denied(t *testing.T) {
	users := NewMockUserRepository()
	admin := seedAdmin(users)
	member := seedMember(users)
	svc := newUserService(users, NewMockPermissionRepository(), NewMockSessionRepository())

	// Non-admin actor cannot change anyone else's role.
	_, err := svc.ChangeRole(context.Background(), member.ID, admin.ID, domain.RoleGuest)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// Admins cannot change their own role.
	_, err = svc.ChangeRole(context.Background(), admin.ID, admin.ID, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrSelfRoleChange)

	// Unknown role is rejected before any lookup.
	_, err = svc.ChangeRole(context.Background(), admin.ID, member.ID, domain.Role("superuser"))
	assert.ErrorIs(t, err, domain.ErrInvalidRegistration)
}

func TestUserService_Suspend(t *testing.T) {
	users := NewMockUserRepository()
	sessions := NewMockSessionRepository()
	admin := seedAdmin(users)
	member := seedMember(users)

	sess := domain.NewSession(member.ID, "tok", "", time.Hour)
	require.NoError(t, sessions.Save(context.Background(), sess))

	svc := newUserService(users, NewMockPermissionRepository(), sessions)

	suspended, err := svc.Suspend(context.Background(), admin.ID, member.ID, "policy violation")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuspended, suspended.Status)
	assert.Equal(t, "policy violation", suspended.Metadata["suspension_reason"])
	assert.Equal(t, admin.ID, suspended.Metadata["suspended_by"])
	assert.NotEmpty(t, suspended.Metadata["suspended_at"])

	active, err := sessions.ListActiveByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUserService_Suspend_Self(t *testing.T) {
	users := NewMockUserRepository()
	admin := seedAdmin(users)
	svc := newUserService(users, NewMockPermissionRepository(), NewMockSessionRepository())

	_, err := svc.Suspend(context.Background(), admin.ID, admin.ID, "oops")
	assert.ErrorIs(t, err, domain.ErrSelfSuspension)
}

func TestUserService_Activate_SuspendedStaysSuspended(t *testing.T) {
	users := NewMockUserRepository()
	admin := seedAdmin(users)
	member := seedMember(users)
	member.Status = domain.StatusSuspended
	users.add(member)

	svc := newUserService(users, NewMockPermissionRepository(), NewMockSessionRepository())

	_, err := svc.Activate(context.Background(), admin.ID, member.ID)
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
}

func TestUserService_GrantAndRevokePermission(t *testing.T) {
	users := NewMockUserRepository()
	perms := NewMockPermissionRepository()
	admin := seedAdmin(users)
	member := seedMember(users)

	svc := newUserService(users, perms, NewMockSessionRepository())

	updated, err := svc.GrantPermission(context.Background(), admin.ID, member.ID,
		domain.PermExportAnalytics, domain.PermissionRead, domain.ScopeAnalytics)
	require.NoError(t, err)
	assert.Contains(t, updated.Permissions, domain.PermExportAnalytics)

	rows, err := perms.ListByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, admin.ID, rows[0].GrantedBy)
	assert.True(t, rows[0].Active)

	updated, err = svc.RevokePermission(context.Background(), admin.ID, member.ID, domain.PermExportAnalytics)
	require.NoError(t, err)
	assert.NotContains(t, updated.Permissions, domain.PermExportAnalytics)

	// Rows are soft-deactivated, not deleted.
	rows, err = perms.ListByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Active)
}

func TestUserService_GrantPermission_NonAdmin(t *testing.T) {
	users := NewMockUserRepository()
	seedAdmin(users)
	member := seedMember(users)
	other := domain.NewUser("other@example.com", "other", "Other User", "hash", domain.RoleUser)
	other.Status = domain.StatusActive
	users.add(other)

	svc := newUserService(users, NewMockPermissionRepository(), NewMockSessionRepository())

	_, err := svc.GrantPermission(context.Background(), member.ID, other.ID,
		domain.PermUseChat, domain.PermissionRead, domain.ScopeChat)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestUserService_Delete(t *testing.T) {
	users := NewMockUserRepository()
	sessions := NewMockSessionRepository()
	admin := seedAdmin(users)
	member := seedMember(users)

	sess := domain.NewSession(member.ID, "tok", "", time.Hour)
	require.NoError(t, sessions.Save(context.Background(), sess))

	svc := newUserService(users, NewMockPermissionRepository(), sessions)

	require.NoError(t, svc.Delete(context.Background(), admin.ID, member.ID))

	_, err := svc.GetByID(context.Background(), member.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	active, err := sessions.ListActiveByUserID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUserService_Delete_NonAdmin(t *testing.T) {
	users := NewMockUserRepository()
	admin := seedAdmin(users)
	member := seedMember(users)

	svc := newUserService(users, NewMockPermissionRepository(), NewMockSessionRepository())

	err := svc.Delete(context.Background(), member.ID, admin.ID)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}
