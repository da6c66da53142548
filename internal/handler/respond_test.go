package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"login blocked", domain.ErrLoginBlocked, http.StatusTooManyRequests, "login_blocked"},
		{"account not active", domain.ErrAccountNotActive, http.StatusForbidden, "account_not_active"},
		{"invalid refresh token", domain.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token"},
		{"duplicate email", domain.ErrEmailAlreadyExists, http.StatusConflict, "email_exists"},
		{"duplicate username", domain.ErrUsernameAlreadyExists, http.StatusConflict, "username_exists"},
		{"password mismatch", domain.ErrPasswordMismatch, http.StatusBadRequest, "invalid_registration"},
		{"permission denied", domain.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{"repo not found", repository.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unknown error", fmt.Errorf("pgx: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRespondError_WrappedErrorsStillMap(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, fmt.Errorf("%w: your account has been suspended, contact support", domain.ErrAccountNotActive))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRespondError_InternalDetailsNeverLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, fmt.Errorf("dial tcp 10.0.0.5:5432: connect: connection refused"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, body.Error, "10.0.0.5")
}

func TestDecodeJSON_BadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)

	var dst struct{}
	ok := decodeJSON(rec, req, &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
