package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/auth"
	"github.com/prn-tf/meridian-auth/internal/domain"
)

// RouterConfig contains the dependencies the router wires together.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	AuthMiddleware *auth.Middleware
	HealthCheck    func(r *http.Request) error
	Logger         zerolog.Logger
}

// NewRouter builds the HTTP route tree.
func NewRouter(config RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(config.Logger))

	r.Get("/health", handleHealth(config.HealthCheck))

	// Public endpoints
	r.Post("/v1/auth/login", config.AuthHandler.Login)
	r.Post("/v1/auth/register", config.AuthHandler.Register)
	r.Post("/v1/auth/refresh", config.AuthHandler.Refresh)
	r.Post("/v1/auth/verify-email", config.AuthHandler.VerifyEmail)
	r.Post("/v1/auth/resend-verification", config.AuthHandler.ResendVerification)

	// Authenticated endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(config.AuthMiddleware.RequireAuth)
		protected.Get("/v1/me", config.AuthHandler.Me)
		protected.Post("/v1/auth/logout", config.AuthHandler.Logout)

		protected.Group(func(admin chi.Router) {
			admin.Use(config.AuthMiddleware.RequireRole(domain.RoleAdmin))
			admin.Get("/v1/admin/users", config.UserHandler.List)
			admin.Get("/v1/admin/users/search", config.UserHandler.Search)
			admin.Get("/v1/admin/users/{id}", config.UserHandler.Get)
			admin.Delete("/v1/admin/users/{id}", config.UserHandler.Delete)
			admin.Put("/v1/admin/users/{id}/role", config.UserHandler.ChangeRole)
			admin.Post("/v1/admin/users/{id}/suspend", config.UserHandler.Suspend)
			admin.Post("/v1/admin/users/{id}/activate", config.UserHandler.Activate)
			admin.Post("/v1/admin/users/{id}/permissions", config.UserHandler.GrantPermission)
			admin.Delete("/v1/admin/users/{id}/permissions/{name}", config.UserHandler.RevokePermission)
			admin.Get("/v1/admin/users/{id}/sessions", config.UserHandler.Sessions)
		})
	})

	return r
}

func handleHealth(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// requestLogger emits one structured log line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
