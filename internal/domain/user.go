// Package domain contains the core business entities for Meridian Auth.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the identity and permission system.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a user's role in the system. Roles determine the default
// permission set a user receives and which resources they may manage.
type Role string

// User roles, ordered from most to least privileged.
const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleViewer, RoleGuest:
		return true
	}
	return false
}

// Status is a user account's lifecycle state.
type Status string

// User account statuses.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// IsValid reports whether the status is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusPending:
		return true
	}
	return false
}

// User represents an identity record in the system.
type User struct {
	// ID is the unique identifier for the user (UUID, immutable once created).
	ID string `json:"id"`

	// Email is the unique email address, always normalized to lowercase.
	Email string `json:"email"`

	// Username is the unique username for login and display, lowercase.
	// Constraints: 3-50 characters, letters, digits, underscore and hyphen.
	Username string `json:"username"`

	// FullName is the user's display name. Constraints: 2-100 characters.
	FullName string `json:"full_name"`

	// PasswordHash is the bcrypt hash of the user's password.
	// It must never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Role determines the user's default permission set.
	Role Role `json:"role"`

	// Status is the account lifecycle state. Only active users can log in.
	Status Status `json:"status"`

	// EmailVerified indicates whether the email address has been confirmed.
	EmailVerified bool `json:"email_verified"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty"`

	// Department is an optional organizational unit.
	Department string `json:"department,omitempty"`

	// Permissions is the flat list of permission names held by the user,
	// regenerated from role defaults on every role change.
	Permissions []string `json:"permissions"`

	// Metadata holds free-form auxiliary data (suspension audit trail,
	// password strength tag, external provider ids).
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// LastLogin is the timestamp of the last successful login, nil if never.
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// NewUser creates a new User in pending status with the default
// permission set for the given role. Email and username are lowercased.
func NewUser(email, username, fullName, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.ToLower(strings.TrimSpace(username)),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: passwordHash,
		Role:         role,
		Status:       StatusPending,
		Permissions:  DefaultPermissionNames(role),
		Metadata:     make(map[string]any),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether the account is in the active state.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Touch updates the modification timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

// TouchLogin records a successful login.
func (u *User) TouchLogin() {
	now := time.Now().UTC()
	u.LastLogin = &now
	u.UpdatedAt = now
}

// Activate transitions the account to active and marks the email verified.
// Suspended accounts cannot self-activate.
func (u *User) Activate() error {
	if u.Status == StatusSuspended {
		return ErrAccountSuspended
	}
	u.Status = StatusActive
	u.EmailVerified = true
	u.Touch()
	return nil
}

// Suspend transitions the account to suspended, recording the reason and
// acting user in metadata. The actor must be allowed to manage this user,
// and users cannot suspend themselves.
func (u *User) Suspend(reason string, by *User) error {
	if !by.CanManageUser(u) {
		return ErrPermissionDenied
	}
	if u.ID == by.ID {
		return ErrSelfSuspension
	}
	u.Status = StatusSuspended
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata["suspension_reason"] = reason
	u.Metadata["suspended_by"] = by.ID
	u.Metadata["suspended_at"] = time.Now().UTC().Format(time.RFC3339)
	u.Touch()
	return nil
}

// ChangeRole updates the user's role and regenerates the permission list
// from the new role's defaults. Custom grants are not preserved; callers
// must also invalidate the user's sessions so stale claims die with them.
// The actor must be allowed to manage this user, and users cannot change
// their own role.
func (u *User) ChangeRole(newRole Role, by *User) error {
	if !by.CanManageUser(u) {
		return ErrPermissionDenied
	}
	if u.ID == by.ID && newRole != u.Role {
		return ErrSelfRoleChange
	}
	u.Role = newRole
	u.Permissions = DefaultPermissionNames(newRole)
	u.Touch()
	return nil
}

// CanAccess reports whether the user may perform action on resource.
// Inactive users can access nothing; admins can access everything.
// Wildcard grants ("action:all", "*:resource") are honored.
func (u *User) CanAccess(resource, action string) bool {
	if u.Status != StatusActive {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	want := action + ":" + resource
	for _, p := range u.Permissions {
		if p == want || p == action+":all" || p == "*:"+resource {
			return true
		}
	}
	return false
}

// CanManageUser reports whether the user may administer the target user.
// Active admins can manage everyone; everyone else only themselves.
func (u *User) CanManageUser(target *User) bool {
	if u.Status != StatusActive {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	return u.ID == target.ID
}

// HasPermission reports whether the permission name is in the user's list.
func (u *User) HasPermission(name string) bool {
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// GrantPermission adds a permission name to the user's list. Only active
// admins may grant permissions.
func (u *User) GrantPermission(name string, by *User) error {
	if by.Role != RoleAdmin || !by.IsActive() {
		return ErrPermissionDenied
	}
	if !u.HasPermission(name) {
		u.Permissions = append(u.Permissions, name)
		u.Touch()
	}
	return nil
}

// RevokePermission removes a permission name from the user's list. Only
// active admins may revoke permissions.
func (u *User) RevokePermission(name string, by *User) error {
	if by.Role != RoleAdmin || !by.IsActive() {
		return ErrPermissionDenied
	}
	for i, p := range u.Permissions {
		if p == name {
			u.Permissions = append(u.Permissions[:i], u.Permissions[i+1:]...)
			u.Touch()
			return nil
		}
	}
	return nil
}

// Clone returns a deep copy of the user. Services mutate a copy and pass
// it to the repository so a failed save never leaves a shared aggregate
// half-updated.
func (u *User) Clone() *User {
	cp := *u
	cp.Permissions = append([]string(nil), u.Permissions...)
	if u.Metadata != nil {
		cp.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			cp.Metadata[k] = v
		}
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}
