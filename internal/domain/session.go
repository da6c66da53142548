package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session lives without a refresh.
const DefaultSessionTTL = 24 * time.Hour

// Session is a live authentication context for a user on one device.
// It is separate from the JWT itself: the token carries the claims, the
// session records where and when they were issued so they can be revoked
// en masse.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	DeviceInfo   map[string]string `json:"device_info,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	Active       bool              `json:"active"`
	ExpiresAt    time.Time         `json:"expires_at"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
}

// NewSession creates an active session for a user.
func NewSession(userID, token, refreshToken string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Token:        token,
		RefreshToken: refreshToken,
		Active:       true,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// IsValid reports whether the session is active and not expired.
func (s *Session) IsValid() bool {
	return s.Active && !s.IsExpired()
}

// Refresh rotates the session's tokens and extends its expiry.
func (s *Session) Refresh(token, refreshToken string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s.Token = token
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
	now := time.Now().UTC()
	s.ExpiresAt = now.Add(ttl)
	s.LastActivity = now
}

// TouchActivity updates the last-activity timestamp.
func (s *Session) TouchActivity() {
	s.LastActivity = time.Now().UTC()
}

// Deactivate invalidates the session.
func (s *Session) Deactivate() {
	s.Active = false
}
