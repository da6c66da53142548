package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/repository"
)

// VerificationSender issues and resolves one-time email-verification
// tokens. Actual mail delivery is a deployment concern; implementations
// here only mint the token and hand it to whatever sends the email.
type VerificationSender interface {
	// SendVerification issues a one-time token for the user and triggers
	// delivery. Returns the token.
	SendVerification(ctx context.Context, email, username, userID string) (string, error)

	// ConsumeToken resolves and invalidates a token, returning the user
	// id it was issued for.
	ConsumeToken(ctx context.Context, verificationToken string) (string, error)
}

const (
	verificationPrefix = "verify:email:"

	// DefaultVerificationTTL is how long a verification token stays valid.
	DefaultVerificationTTL = 24 * time.Hour
)

// ErrTokenNotFound indicates an unknown or expired verification token.
var ErrTokenNotFound = errors.New("verification token not found")

// CacheVerification implements VerificationSender with one-time tokens
// stored in the shared cache. Delivery is logged; a mail provider hook
// can be layered on top without changing the token contract.
type CacheVerification struct {
	cache  repository.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCacheVerification creates a cache-backed verification sender.
func NewCacheVerification(cache repository.Cache, ttl time.Duration, logger zerolog.Logger) *CacheVerification {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &CacheVerification{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "verification").Logger(),
	}
}

// SendVerification mints a one-time token mapped to the user id.
func (v *CacheVerification) SendVerification(ctx context.Context, email, username, userID string) (string, error) {
	tok := uuid.NewString()
	if err := v.cache.Set(ctx, verificationPrefix+tok, []byte(userID), v.ttl); err != nil {
		return "", err
	}
	v.logger.Info().
		Str("user_id", userID).
		Str("username", username).
		Msg("verification token issued")
	return tok, nil
}

// ConsumeToken resolves a token to its user id and deletes it so it
// cannot be replayed.
func (v *CacheVerification) ConsumeToken(ctx context.Context, verificationToken string) (string, error) {
	key := verificationPrefix + verificationToken
	val, err := v.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	_ = v.cache.Delete(ctx, key)
	return string(val), nil
}

// Ensure CacheVerification implements VerificationSender
var _ VerificationSender = (*CacheVerification)(nil)
