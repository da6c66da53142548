package token

import (
	"context"
	"errors"
	"time"

	"github.com/prn-tf/meridian-auth/internal/repository"
)

// RevocationStore is a deny-list keyed by token id (jti). The default
// no-op store never revokes; deployments that need logout-now semantics
// must plug in a real store (Redis or database) before production use.
type RevocationStore interface {
	// Revoke marks a token id as revoked for at least ttl.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a token id has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NoopRevocations is a RevocationStore that never revokes anything.
type NoopRevocations struct{}

// Revoke is a no-op.
func (NoopRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

// IsRevoked always reports false.
func (NoopRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

const revocationPrefix = "token:revoked:"

// CacheRevocations implements RevocationStore on top of the shared cache
// (Redis in production, in-memory for single-node deployments).
type CacheRevocations struct {
	cache repository.Cache
}

// NewCacheRevocations creates a cache-backed revocation store.
func NewCacheRevocations(cache repository.Cache) *CacheRevocations {
	return &CacheRevocations{cache: cache}
}

// Revoke stores the jti with the token's remaining lifetime as TTL, so
// the deny-list cleans itself up.
func (r *CacheRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return r.cache.Set(ctx, revocationPrefix+jti, []byte("1"), ttl)
}

// IsRevoked reports whether the jti is on the deny-list. Cache errors
// other than a miss are surfaced so the caller can fail closed.
func (r *CacheRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.cache.Get(ctx, revocationPrefix+jti)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
