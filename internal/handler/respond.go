// Package handler provides the HTTP layer for the Meridian Auth API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
	"github.com/prn-tf/meridian-auth/internal/service"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps domain errors to HTTP status codes. Unknown errors
// become an opaque 500 so internals never leak to the client.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "invalid_credentials", err.Error()
	case errors.Is(err, domain.ErrLoginBlocked):
		status, code, message = http.StatusTooManyRequests, "login_blocked", err.Error()
	case errors.Is(err, domain.ErrAccountNotActive):
		status, code, message = http.StatusForbidden, "account_not_active", err.Error()
	case errors.Is(err, domain.ErrAccountSuspended):
		status, code, message = http.StatusForbidden, "account_suspended", err.Error()
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		status, code, message = http.StatusUnauthorized, "invalid_refresh_token", err.Error()
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		status, code, message = http.StatusConflict, "email_exists", err.Error()
	case errors.Is(err, domain.ErrUsernameAlreadyExists):
		status, code, message = http.StatusConflict, "username_exists", err.Error()
	case errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrInvalidRegistration):
		status, code, message = http.StatusBadRequest, "invalid_registration", err.Error()
	case errors.Is(err, domain.ErrInvalidVerification):
		status, code, message = http.StatusBadRequest, "invalid_verification", err.Error()
	case errors.Is(err, domain.ErrAlreadyVerified):
		status, code, message = http.StatusConflict, "already_verified", err.Error()
	case errors.Is(err, domain.ErrSelfSuspension),
		errors.Is(err, domain.ErrSelfRoleChange):
		status, code, message = http.StatusBadRequest, "invalid_target", err.Error()
	case errors.Is(err, domain.ErrPermissionDenied):
		status, code, message = http.StatusForbidden, "permission_denied", err.Error()
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, service.ErrVerificationNotConfigured):
		status, code, message = http.StatusNotImplemented, "verification_not_configured", err.Error()
	}

	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Code:  "bad_request",
		})
		return false
	}
	return true
}
