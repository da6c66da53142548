package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PermissionType classifies what kind of operation a permission allows.
type PermissionType string

// Permission types.
const (
	PermissionRead   PermissionType = "read"
	PermissionWrite  PermissionType = "write"
	PermissionDelete PermissionType = "delete"
	PermissionAdmin  PermissionType = "admin"
)

// PermissionScope is the resource category a permission applies to.
type PermissionScope string

// Permission scopes.
const (
	ScopeDocuments PermissionScope = "documents"
	ScopeUsers     PermissionScope = "users"
	ScopeChat      PermissionScope = "chat"
	ScopeAnalytics PermissionScope = "analytics"
	ScopeSystem    PermissionScope = "system"
)

// Well-known permission names.
const (
	PermReadPublic  = "read:public"
	PermReadProfile = "read:profile"

	PermReadDocuments   = "read:documents"
	PermWriteDocuments  = "write:documents"
	PermDeleteDocuments = "delete:documents"

	PermReadUsers   = "read:users"
	PermManageUsers = "manage:users"

	PermUseChat    = "use:chat"
	PermManageChat = "manage:chat"

	PermReadAnalytics   = "read:analytics"
	PermExportAnalytics = "export:analytics"

	PermManageSystem = "manage:system"

	PermReadAll   = "read:all"
	PermWriteAll  = "write:all"
	PermDeleteAll = "delete:all"
)

// Permission is a named grant scoped to a resource category, owned by a
// single user. Expired permissions are kept as inert history rather than
// deleted.
type Permission struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      PermissionType  `json:"type"`
	Scope     PermissionScope `json:"scope"`
	Resource  string          `json:"resource,omitempty"`
	GrantedAt time.Time       `json:"granted_at"`
	GrantedBy string          `json:"granted_by,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Active    bool            `json:"active"`
}

// NewPermission creates an active, non-expiring permission grant.
func NewPermission(userID, name string, typ PermissionType, scope PermissionScope, grantedBy string) *Permission {
	return &Permission{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      typ,
		Scope:     scope,
		GrantedAt: time.Now().UTC(),
		GrantedBy: grantedBy,
		Active:    true,
	}
}

// IsExpired reports whether the permission has passed its expiry.
func (p *Permission) IsExpired() bool {
	if p.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(*p.ExpiresAt)
}

// IsValid reports whether the permission is active and not expired.
func (p *Permission) IsValid() bool {
	return p.Active && !p.IsExpired()
}

// Deactivate soft-invalidates the permission without deleting it.
func (p *Permission) Deactivate() {
	p.Active = false
}

// Matches reports whether this permission satisfies the required grant.
// An invalid permission never matches. The resource qualifier is only
// compared when both sides specify one.
func (p *Permission) Matches(name string, typ PermissionType, scope PermissionScope, resource string) bool {
	if !p.IsValid() {
		return false
	}
	if p.Name != name || p.Type != typ || p.Scope != scope {
		return false
	}
	if resource != "" && p.Resource != "" && p.Resource != resource {
		return false
	}
	return true
}

// DefaultPermissionNames returns the default permission names for a role.
// The mapping is total: every known role maps to a defined list, and
// every role gets the public/profile base grants. Unknown roles fall
// back to the guest set.
func DefaultPermissionNames(role Role) []string {
	base := []string{PermReadPublic, PermReadProfile}
	switch role {
	case RoleAdmin:
		return append(base,
			PermReadAll, PermWriteAll, PermDeleteAll,
			PermManageUsers, PermManageSystem,
		)
	case RoleUser:
		return append(base,
			PermReadDocuments, PermWriteDocuments,
			PermReadAnalytics, PermUseChat,
		)
	case RoleViewer:
		return append(base, PermReadDocuments, PermReadAnalytics)
	case RoleGuest:
		return base
	default:
		return base
	}
}

// DefaultPermissionSet expands DefaultPermissionNames into first-class
// Permission entities owned by the given user.
func DefaultPermissionSet(userID string, role Role) []*Permission {
	names := DefaultPermissionNames(role)
	perms := make([]*Permission, 0, len(names))
	for _, name := range names {
		perms = append(perms, NewPermission(userID, name, permTypeFor(name), permScopeFor(name), ""))
	}
	return perms
}

// permTypeFor derives a permission type from the action half of a
// "action:target" permission name.
func permTypeFor(name string) PermissionType {
	action, _, _ := strings.Cut(name, ":")
	switch action {
	case "write", "use", "export":
		return PermissionWrite
	case "delete":
		return PermissionDelete
	case "manage":
		return PermissionAdmin
	default:
		return PermissionRead
	}
}

// permScopeFor derives a permission scope from the target half of a
// "action:target" permission name.
func permScopeFor(name string) PermissionScope {
	_, target, _ := strings.Cut(name, ":")
	switch target {
	case "users":
		return ScopeUsers
	case "chat":
		return ScopeChat
	case "analytics":
		return ScopeAnalytics
	case "system", "all":
		return ScopeSystem
	default:
		return ScopeDocuments
	}
}
