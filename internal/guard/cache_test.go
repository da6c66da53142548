package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/meridian-auth/internal/cache/memory"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

func newTestGuard(t *testing.T) (*CacheGuard, *memory.Cache) {
	t.Helper()
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	g := NewCacheGuard(cache, Config{
		MaxAttempts: 3,
		Window:      time.Minute,
		BlockFor:    time.Minute,
	}, zerolog.Nop())
	return g, cache
}

func TestCacheGuard_BlocksAfterThreshold(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, g.RecordFailedAttempt(ctx, "jo@example.com"))

		blocked, err := g.IsBlocked(ctx, "jo@example.com")
		require.NoError(t, err)
		assert.False(t, blocked, "attempt %d must not block yet", i+1)
	}

	require.NoError(t, g.RecordFailedAttempt(ctx, "jo@example.com"))

	blocked, err := g.IsBlocked(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Other accounts are unaffected.
	blocked, err = g.IsBlocked(ctx, "other@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCacheGuard_ClearAttemptsResets(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, g.RecordFailedAttempt(ctx, "jo@example.com"))
	}
	blocked, err := g.IsBlocked(ctx, "jo@example.com")
	require.NoError(t, err)
	require.True(t, blocked)

	require.NoError(t, g.ClearAttempts(ctx, "jo@example.com"))

	blocked, err = g.IsBlocked(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCacheGuard_FailsOpenOnCacheError(t *testing.T) {
	g := NewCacheGuard(&failingCache{}, DefaultConfig(), zerolog.Nop())

	blocked, err := g.IsBlocked(context.Background(), "jo@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestCacheGuard_ConcurrentFailuresCountedExactly(t *testing.T) {
	g, cache := newTestGuard(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.RecordFailedAttempt(ctx, "jo@example.com")
		}()
	}
	wg.Wait()

	raw, err := cache.Get(ctx, "login:attempts:jo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "10", string(raw))
}

func TestNoopGuard_NeverBlocks(t *testing.T) {
	g := NoopGuard{}
	ctx := context.Background()

	require.NoError(t, g.RecordFailedAttempt(ctx, "jo@example.com"))
	blocked, err := g.IsBlocked(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
	require.NoError(t, g.ClearAttempts(ctx, "jo@example.com"))
}

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, assert.AnError
}

func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return assert.AnError
}

func (failingCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, assert.AnError
}

func (failingCache) Delete(ctx context.Context, key string) error { return assert.AnError }

func (failingCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}

func (failingCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return assert.AnError
}

func (failingCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, assert.AnError
}

func (failingCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return 0, assert.AnError
}

var _ repository.Cache = failingCache{}
