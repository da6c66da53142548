package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession("user-1", "access-token", "refresh-token", 0)

	require.NotEmpty(t, s.ID)
	assert.Equal(t, "user-1", s.UserID)
	assert.True(t, s.Active)
	assert.True(t, s.IsValid())
	assert.WithinDuration(t, time.Now().Add(DefaultSessionTTL), s.ExpiresAt, time.Minute)
}

func TestSession_Expiry(t *testing.T) {
	s := NewSession("user-1", "access-token", "", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	assert.True(t, s.IsExpired())
	assert.False(t, s.IsValid(), "expired sessions are not valid even while active")
}

func TestSession_Refresh(t *testing.T) {
	s := NewSession("user-1", "old-access", "old-refresh", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.True(t, s.IsExpired())

	s.Refresh("new-access", "new-refresh", time.Hour)

	assert.Equal(t, "new-access", s.Token)
	assert.Equal(t, "new-refresh", s.RefreshToken)
	assert.True(t, s.IsValid(), "refresh extends an expired session")
}

func TestSession_Deactivate(t *testing.T) {
	s := NewSession("user-1", "access-token", "", time.Hour)
	s.Deactivate()

	assert.False(t, s.Active)
	assert.False(t, s.IsValid())
}
