package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/meridian-auth/internal/repository"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache()
	t.Cleanup(c.Stop)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	// The returned slice is a copy.
	got[0] = 'X'
	again, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}

func TestCache_GetMissing(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 20*time.Millisecond))

	_, err := c.Get(ctx, "key")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = c.Get(ctx, "key")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_SetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "key", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "key", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestCache_SetNXAfterExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "key", []byte("first"), 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	ok, err = c.SetNX(ctx, "key", []byte("second"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired key counts as absent")
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	// Deleting a missing key is not an error.
	assert.NoError(t, c.Delete(ctx, "missing"))
}

func TestCache_Increment(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, "counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Non-numeric values cannot be incremented.
	require.NoError(t, c.Set(ctx, "text", []byte("abc"), 0))
	_, err = c.Increment(ctx, "text", 1)
	assert.Error(t, err)
}

func TestCache_ExpireAndTTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	ttl, err := c.TTL(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-2), ttl, "no expiry")

	require.NoError(t, c.Expire(ctx, "key", time.Minute))
	ttl, err = c.TTL(ctx, "key")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	ttl, err = c.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
