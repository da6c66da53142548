package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-test-secret-test-secret!"
	testIssuer = "meridian-test"
)

func newTestService(t *testing.T, revocations RevocationStore) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret:     testSecret,
		Issuer:     testIssuer,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, revocations)
	require.NoError(t, err)
	return svc
}

func testInput() IssueInput {
	return IssueInput{
		UserID:      "user-1",
		Email:       "jo@example.com",
		Role:        "user",
		Permissions: []string{"read:documents", "read:profile"},
	}
}

func TestService_IssueAndVerifyAccess(t *testing.T) {
	svc := newTestService(t, nil)

	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)
	assert.Equal(t, "bearer", bundle.TokenType)
	assert.Equal(t, int64(60), bundle.ExpiresIn)
	assert.Empty(t, bundle.RefreshToken, "no refresh token without remember-me")
	assert.Nil(t, bundle.RefreshExpiresAt)

	claims, err := svc.VerifyAccess(context.Background(), bundle.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "jo@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, []string{"read:documents", "read:profile"}, claims.Permissions)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestService_RememberMeIssuesRefreshToken(t *testing.T) {
	svc := newTestService(t, nil)

	in := testInput()
	in.RememberMe = true
	bundle, err := svc.Issue(in)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.RefreshToken)
	require.NotNil(t, bundle.RefreshExpiresAt)

	claims, err := svc.VerifyRefresh(context.Background(), bundle.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, TypeRefresh, claims.TokenType)
	// Refresh tokens carry no authorization payload.
	assert.Empty(t, claims.Role)
	assert.Empty(t, claims.Permissions)
}

func TestService_TypeConfusionRejected(t *testing.T) {
	svc := newTestService(t, nil)

	in := testInput()
	in.RememberMe = true
	bundle, err := svc.Issue(in)
	require.NoError(t, err)

	// A refresh token is not an access token, and vice versa.
	_, err = svc.VerifyAccess(context.Background(), bundle.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyRefresh(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_WrongSecretRejected(t *testing.T) {
	svc := newTestService(t, nil)
	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)

	other, err := NewService(Config{
		Secret:     "a-completely-different-signing-key!!",
		Issuer:     testIssuer,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, nil)
	require.NoError(t, err)

	_, err = other.VerifyAccess(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_WrongIssuerRejected(t *testing.T) {
	other, err := NewService(Config{
		Secret:     testSecret,
		Issuer:     "someone-else",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, nil)
	require.NoError(t, err)

	bundle, err := other.Issue(testInput())
	require.NoError(t, err)

	svc := newTestService(t, nil)
	_, err = svc.VerifyAccess(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ExpiredTokenRejected(t *testing.T) {
	svc := newTestService(t, nil)
	svc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Minute) }

	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_GarbageRejected(t *testing.T) {
	svc := newTestService(t, nil)

	for _, raw := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, err := svc.VerifyAccess(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestService_FreshJTIPerIssue(t *testing.T) {
	svc := newTestService(t, nil)

	first, err := svc.Issue(testInput())
	require.NoError(t, err)
	second, err := svc.Issue(testInput())
	require.NoError(t, err)

	a := svc.DecodeUnsafe(first.AccessToken)
	b := svc.DecodeUnsafe(second.AccessToken)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestService_Revocation(t *testing.T) {
	store := newMemoryRevocations()
	svc := newTestService(t, store)

	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(context.Background(), bundle.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), claims.ID))

	_, err = svc.VerifyAccess(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RevocationStoreErrorFailsClosed(t *testing.T) {
	store := newMemoryRevocations()
	store.checkErr = assert.AnError
	svc := newTestService(t, store)

	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(context.Background(), bundle.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_DecodeUnsafe(t *testing.T) {
	svc := newTestService(t, nil)
	svc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Minute) }

	bundle, err := svc.Issue(testInput())
	require.NoError(t, err)

	// Expired for verification, but still decodable for diagnostics.
	claims := svc.DecodeUnsafe(bundle.AccessToken)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID())

	assert.Nil(t, svc.DecodeUnsafe("not-a-jwt"))
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(Config{Issuer: testIssuer}, nil)
	assert.Error(t, err)
}

// memoryRevocations is an in-process RevocationStore for tests.
type memoryRevocations struct {
	mu       sync.Mutex
	revoked  map[string]bool
	checkErr error
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]bool)}
}

func (m *memoryRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memoryRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.revoked[jti], nil
}
