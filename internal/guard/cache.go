package guard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/repository"
)

const attemptsPrefix = "login:attempts:"

// Config holds guard thresholds.
type Config struct {
	// MaxAttempts is the number of failed attempts before blocking.
	MaxAttempts int64

	// Window is how long the attempt counter lives without new failures.
	Window time.Duration

	// BlockFor is how long the block lasts once the threshold is crossed.
	BlockFor time.Duration
}

// DefaultConfig returns the default guard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		BlockFor:    15 * time.Minute,
	}
}

// CacheGuard implements Guard on top of the shared cache, using atomic
// INCR so concurrent failures from distinct requests are counted exactly.
type CacheGuard struct {
	cache  repository.Cache
	cfg    Config
	logger zerolog.Logger
}

// NewCacheGuard creates a cache-backed guard.
func NewCacheGuard(cache repository.Cache, cfg Config, logger zerolog.Logger) *CacheGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = DefaultConfig().BlockFor
	}
	return &CacheGuard{
		cache:  cache,
		cfg:    cfg,
		logger: logger.With().Str("component", "login_guard").Logger(),
	}
}

// IsBlocked reports whether the failed-attempt counter has reached the
// threshold. Cache outages fail open: login availability is preferred
// over brute-force protection.
func (g *CacheGuard) IsBlocked(ctx context.Context, email string) (bool, error) {
	raw, err := g.cache.Get(ctx, attemptsPrefix+email)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return false, nil
		}
		g.logger.Warn().Err(err).Msg("attempts lookup failed, failing open")
		return false, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, nil
	}
	return n >= g.cfg.MaxAttempts, nil
}

// RecordFailedAttempt atomically bumps the counter. The first failure
// starts the window; crossing the threshold extends the key to the full
// block duration.
func (g *CacheGuard) RecordFailedAttempt(ctx context.Context, email string) error {
	key := attemptsPrefix + email
	n, err := g.cache.Increment(ctx, key, 1)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to record login attempt")
		return err
	}
	if n == 1 {
		return g.cache.Expire(ctx, key, g.cfg.Window)
	}
	if n >= g.cfg.MaxAttempts {
		return g.cache.Expire(ctx, key, g.cfg.BlockFor)
	}
	return nil
}

// ClearAttempts removes the counter after a successful login.
func (g *CacheGuard) ClearAttempts(ctx context.Context, email string) error {
	return g.cache.Delete(ctx, attemptsPrefix+email)
}

// Ensure CacheGuard implements Guard
var _ Guard = (*CacheGuard)(nil)
