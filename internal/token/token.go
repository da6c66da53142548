// Package token implements JWT issuance and verification for Meridian Auth.
// Access and refresh tokens are signed with HS256 and discriminated by a
// "type" claim: a refresh token is never accepted where an access token
// is required, and vice versa.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminator values.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken indicates the token failed signature, expiry, type or
// revocation checks. Verification never reports which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity facts embedded in a signed token.
type Claims struct {
	Email       string         `json:"email,omitempty"`
	Role        string         `json:"role,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	TokenType   string         `json:"type"`
	Extra       map[string]any `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// Bundle is the result of issuing tokens for a login.
type Bundle struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"` // whole seconds

	// RefreshToken is only present when the login asked to be remembered.
	RefreshToken     string     `json:"refresh_token,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

// Config holds the signing parameters for a token Service.
type Config struct {
	// Secret is the HS256 signing key.
	Secret string

	// Issuer is embedded in every token and required on verification.
	Issuer string

	// AccessTTL is the access-token lifetime.
	AccessTTL time.Duration

	// RefreshTTL is the refresh-token lifetime.
	RefreshTTL time.Duration
}

// Service is a stateless JWT signer and verifier. Revocation state lives
// in the pluggable RevocationStore.
type Service struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations RevocationStore
	now         func() time.Time
}

// NewService creates a token Service. A nil revocation store falls back
// to the no-op store, which never revokes anything; production
// deployments should plug in the cache-backed store.
func NewService(cfg Config, revocations RevocationStore) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if revocations == nil {
		revocations = NoopRevocations{}
	}
	return &Service{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		revocations: revocations,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueInput carries the identity facts to embed in a token pair.
type IssueInput struct {
	UserID      string
	Email       string
	Role        string
	Permissions []string
	RememberMe  bool
	Extra       map[string]any
}

// Issue signs an access token, and a refresh token when RememberMe is
// set. Each token gets a fresh random jti.
func (s *Service) Issue(input IssueInput) (*Bundle, error) {
	now := s.now()
	accessExp := now.Add(s.accessTTL)

	access := Claims{
		Email:       input.Email,
		Role:        input.Role,
		Permissions: input.Permissions,
		TokenType:   TypeAccess,
		Extra:       input.Extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   input.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresAt:   accessExp,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}

	if input.RememberMe {
		refreshExp := now.Add(s.refreshTTL)
		refresh := Claims{
			Email:     input.Email,
			TokenType: TypeRefresh,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    s.issuer,
				Subject:   input.UserID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(refreshExp),
				ID:        uuid.NewString(),
			},
		}
		refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.secret)
		if err != nil {
			return nil, err
		}
		bundle.RefreshToken = refreshToken
		bundle.RefreshExpiresAt = &refreshExp
	}

	return bundle, nil
}

// VerifyAccess verifies signature and expiry and requires the access
// type claim. Revoked tokens are rejected.
func (s *Service) VerifyAccess(ctx context.Context, raw string) (*Claims, error) {
	return s.verify(ctx, raw, TypeAccess)
}

// VerifyRefresh verifies signature and expiry and requires the refresh
// type claim. Revoked tokens are rejected.
func (s *Service) VerifyRefresh(ctx context.Context, raw string) (*Claims, error) {
	return s.verify(ctx, raw, TypeRefresh)
}

func (s *Service) verify(ctx context.Context, raw, wantType string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	// A valid signature is not enough: the type claim must match, so an
	// attacker cannot replay a refresh token against an access endpoint.
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnsafe decodes a token without verifying its signature. For
// diagnostics only; never use the result for authorization decisions.
func (s *Service) DecodeUnsafe(raw string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}

// Revoke adds a token id to the deny-list until the given token would
// have expired anyway.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	// Refresh TTL is the longest any outstanding token can live.
	return s.revocations.Revoke(ctx, jti, s.refreshTTL)
}
