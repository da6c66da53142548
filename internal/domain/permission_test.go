package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPermissionNames(t *testing.T) {
	base := []string{PermReadPublic, PermReadProfile}

	tests := []struct {
		role     Role
		contains []string
		excludes []string
	}{
		{
			role:     RoleAdmin,
			contains: append(base, PermReadAll, PermWriteAll, PermDeleteAll, PermManageUsers, PermManageSystem),
		},
		{
			role:     RoleUser,
			contains: append(base, PermReadDocuments, PermWriteDocuments, PermReadAnalytics, PermUseChat),
			excludes: []string{PermManageUsers, PermDeleteAll},
		},
		{
			role:     RoleViewer,
			contains: append(base, PermReadDocuments, PermReadAnalytics),
			excludes: []string{PermWriteDocuments, PermUseChat},
		},
		{
			role:     RoleGuest,
			contains: base,
			excludes: []string{PermReadDocuments},
		},
		{
			// Unknown roles still get the base set; the mapping is total.
			role:     Role("mystery"),
			contains: base,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			names := DefaultPermissionNames(tt.role)
			for _, want := range tt.contains {
				assert.Contains(t, names, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, names, not)
			}
		})
	}
}

func TestDefaultPermissionSet(t *testing.T) {
	perms := DefaultPermissionSet("user-1", RoleViewer)
	names := DefaultPermissionNames(RoleViewer)
	require.Len(t, perms, len(names))

	for _, p := range perms {
		assert.Equal(t, "user-1", p.UserID)
		assert.True(t, p.Active)
		assert.NotEmpty(t, p.ID)
		assert.Contains(t, names, p.Name)
	}
}

func TestPermission_Expiry(t *testing.T) {
	p := NewPermission("u1", PermUseChat, PermissionRead, ScopeChat, "admin-1")
	assert.False(t, p.IsExpired())
	assert.True(t, p.IsValid())

	past := time.Now().UTC().Add(-time.Minute)
	p.ExpiresAt = &past
	assert.True(t, p.IsExpired())
	assert.False(t, p.IsValid())
}

func TestPermission_Matches(t *testing.T) {
	p := NewPermission("u1", PermReadDocuments, PermissionRead, ScopeDocuments, "admin-1")

	assert.True(t, p.Matches(PermReadDocuments, PermissionRead, ScopeDocuments, ""))
	assert.False(t, p.Matches(PermReadDocuments, PermissionWrite, ScopeDocuments, ""))
	assert.False(t, p.Matches(PermReadDocuments, PermissionRead, ScopeUsers, ""))
	assert.False(t, p.Matches(PermWriteDocuments, PermissionRead, ScopeDocuments, ""))

	// Resource only narrows when the grant itself is scoped to one.
	assert.True(t, p.Matches(PermReadDocuments, PermissionRead, ScopeDocuments, "report.pdf"))
	p.Resource = "handbook.pdf"
	assert.False(t, p.Matches(PermReadDocuments, PermissionRead, ScopeDocuments, "report.pdf"))
	assert.True(t, p.Matches(PermReadDocuments, PermissionRead, ScopeDocuments, "handbook.pdf"))

	// Deactivated grants never match.
	p.Deactivate()
	assert.False(t, p.Matches(PermReadDocuments, PermissionRead, ScopeDocuments, "handbook.pdf"))
}
