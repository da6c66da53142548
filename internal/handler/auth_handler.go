package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/auth"
	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/service"
	"github.com/prn-tf/meridian-auth/internal/token"
)

// AuthHandler handles login, registration and token lifecycle endpoints.
type AuthHandler struct {
	login    *service.LoginService
	register *service.RegisterService
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(login *service.LoginService, register *service.RegisterService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		register: register,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	User   *domain.User  `json:"user"`
	Tokens *token.Bundle `json:"tokens"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.login.Login(r.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{User: out.User, Tokens: out.Tokens})
}

type registerRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Phone           string `json:"phone,omitempty"`
	Department      string `json:"department,omitempty"`
}

type registerResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.register.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		FullName:        req.FullName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Phone:           req.Phone,
		Department:      req.Department,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, registerResponse{User: out.User, Message: out.Message})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.login.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{User: out.User, Tokens: out.Tokens})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail handles POST /v1/auth/verify-email.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.register.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":    user,
		"message": "email verified",
	})
}

type resendRequest struct {
	Email string `json:"email"`
}

// ResendVerification handles POST /v1/auth/resend-verification.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.register.ResendVerification(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Logout handles POST /v1/auth/logout. Logout is idempotent: an already
// revoked or expired token still gets 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
		return
	}

	if err := h.login.Logout(r.Context(), raw); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/me for the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
		return
	}

	user, err := h.login.ValidateToken(r.Context(), bearerToken(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
