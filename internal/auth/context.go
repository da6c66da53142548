// Package auth provides request authentication middleware for the
// Meridian HTTP API: bearer-token parsing, claim verification and
// role/permission gates.
package auth

import (
	"context"

	"github.com/prn-tf/meridian-auth/internal/token"
)

type contextKey struct{ name string }

var claimsKey = contextKey{"claims"}

// WithClaims returns a context carrying verified token claims.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the verified claims stored by the
// middleware, or nil when the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}
