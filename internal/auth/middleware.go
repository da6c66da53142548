package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/token"
)

// Middleware builds the HTTP middleware chain pieces for request auth.
type Middleware struct {
	tokens *token.Service
	logger zerolog.Logger
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(tokens *token.Service, logger zerolog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		logger: logger.With().Str("component", "auth_middleware").Logger(),
	}
}

// RequireAuth parses the Authorization header, verifies the bearer token
// as an access token, and stores the claims in the request context.
// Requests without a valid access token get 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims, err := m.tokens.VerifyAccess(r.Context(), raw)
		if err != nil {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole allows the request only when the verified claims carry the
// given role. Admins pass every role gate.
func (m *Middleware) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				unauthorized(w)
				return
			}
			if claims.Role != string(role) && claims.Role != string(domain.RoleAdmin) {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissions allows the request only when the verified claims
// carry every listed permission. Admins bypass the check.
func (m *Middleware) RequirePermissions(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				unauthorized(w)
				return
			}
			if claims.Role == string(domain.RoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}
			held := make(map[string]struct{}, len(claims.Permissions))
			for _, p := range claims.Permissions {
				held[p] = struct{}{}
			}
			for _, want := range required {
				if _, ok := held[want]; !ok {
					m.logger.Debug().
						Str("user_id", claims.Subject).
						Str("missing", want).
						Msg("permission denied")
					forbidden(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"forbidden"}`))
}
