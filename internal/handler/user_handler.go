package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/auth"
	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
	"github.com/prn-tf/meridian-auth/internal/service"
)

// UserHandler handles the admin user management endpoints.
type UserHandler struct {
	users  *service.UserService
	logger zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("handler", "users").Logger(),
	}
}

// List handles GET /v1/admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filters := map[string]string{}
	for _, key := range []string{"role", "status", "department"} {
		if v := q.Get(key); v != "" {
			filters[key] = v
		}
	}

	users, err := h.users.List(r.Context(), repository.ListOptions{
		Limit:   limit,
		Offset:  offset,
		Filters: filters,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// Get handles GET /v1/admin/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Search handles GET /v1/admin/users/search?q=...
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query", Code: "bad_request"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.users.Search(r.Context(), query, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole handles PUT /v1/admin/users/{id}/role. Changing a role
// resets the target's permissions to the new role's defaults and ends
// their sessions.
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.ChangeRole(r.Context(), actorID(r), chi.URLParam(r, "id"), domain.Role(req.Role))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

// Suspend handles POST /v1/admin/users/{id}/suspend.
func (h *UserHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Suspend(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Activate handles POST /v1/admin/users/{id}/activate.
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Activate(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type grantPermissionRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

// GrantPermission handles POST /v1/admin/users/{id}/permissions.
func (h *UserHandler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantPermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.GrantPermission(r.Context(), actorID(r), chi.URLParam(r, "id"),
		req.Name, domain.PermissionType(req.Type), domain.PermissionScope(req.Scope))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// RevokePermission handles DELETE /v1/admin/users/{id}/permissions/{name}.
func (h *UserHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.RevokePermission(r.Context(), actorID(r), chi.URLParam(r, "id"),
		chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /v1/admin/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sessions handles GET /v1/admin/users/{id}/sessions.
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.users.Sessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// actorID returns the authenticated user's ID from the request claims.
func actorID(r *http.Request) string {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
