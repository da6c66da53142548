package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/guard"
	"github.com/prn-tf/meridian-auth/internal/metrics"
	"github.com/prn-tf/meridian-auth/internal/pkg/crypto"
	"github.com/prn-tf/meridian-auth/internal/repository"
	"github.com/prn-tf/meridian-auth/internal/token"
)

// LoginService orchestrates credential verification, account-status
// rules and token issuance.
type LoginService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   *crypto.PasswordHasher
	tokens   *token.Service
	guard    guard.Guard
	metrics  *metrics.AuthMetrics
	logger   zerolog.Logger
}

// NewLoginService creates a LoginService. The guard is optional; pass
// guard.NoopGuard{} (or nil) to disable brute-force protection. Metrics
// may be nil.
func NewLoginService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	hasher *crypto.PasswordHasher,
	tokens *token.Service,
	loginGuard guard.Guard,
	m *metrics.AuthMetrics,
	logger zerolog.Logger,
) *LoginService {
	if loginGuard == nil {
		loginGuard = guard.NoopGuard{}
	}
	return &LoginService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		guard:    loginGuard,
		metrics:  m,
		logger:   logger.With().Str("service", "login").Logger(),
	}
}

// LoginInput contains the credentials and context of a login attempt.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	User    *domain.User
	Tokens  *token.Bundle
	Session *domain.Session
}

// Login runs the login state machine. Checks run in a fixed order and
// short-circuit on the first failure: email format, attempt guard, user
// lookup, password, account status. The lookup and password failures
// return the same domain.ErrInvalidCredentials so responses cannot be
// used to probe which emails are registered.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		s.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	blocked, err := s.guard.IsBlocked(ctx, email)
	if err == nil && blocked {
		s.metrics.ObserveLogin(metrics.LoginBlocked)
		return nil, domain.ErrLoginBlocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.guard.RecordFailedAttempt(ctx, email)
			s.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	verifyStart := time.Now()
	ok := s.hasher.Verify(input.Password, user.PasswordHash)
	s.metrics.ObservePasswordHash(time.Since(verifyStart).Seconds())
	if !ok {
		_ = s.guard.RecordFailedAttempt(ctx, email)
		s.metrics.ObserveLogin(metrics.LoginInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}

	user = user.Clone()
	if err := s.checkStatus(user); err != nil {
		s.metrics.ObserveLogin(metrics.LoginNotActive)
		return nil, err
	}

	bundle, err := s.tokens.Issue(token.IssueInput{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Permissions,
		RememberMe:  input.RememberMe,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.metrics.ObserveTokenIssued(token.TypeAccess)
	if bundle.RefreshToken != "" {
		s.metrics.ObserveTokenIssued(token.TypeRefresh)
	}

	// Stale hash parameters are upgraded opportunistically while the
	// plaintext is available.
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if newHash, err := s.hasher.Hash(input.Password); err == nil {
			user.PasswordHash = newHash
		}
	}

	user.TouchLogin()
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to save user after login")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	sess := domain.NewSession(saved.ID, bundle.AccessToken, bundle.RefreshToken, domain.DefaultSessionTTL)
	sess.IPAddress = input.IPAddress
	sess.UserAgent = input.UserAgent
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Warn().Err(err).Str("user_id", saved.ID).Msg("failed to record session")
	}

	_ = s.guard.ClearAttempts(ctx, email)
	s.metrics.ObserveLogin(metrics.LoginOK)

	s.logger.Info().
		Str("user_id", saved.ID).
		Str("role", string(saved.Role)).
		Bool("remember_me", input.RememberMe).
		Msg("user logged in")

	return &LoginOutput{User: saved, Tokens: bundle, Session: sess}, nil
}

// checkStatus applies the account-status gate. Pending accounts with a
// verified email auto-activate; everything else that is not active is
// rejected with a reason-specific message.
func (s *LoginService) checkStatus(user *domain.User) error {
	switch user.Status {
	case domain.StatusSuspended:
		return fmt.Errorf("%w: your account has been suspended, contact support", domain.ErrAccountNotActive)
	case domain.StatusInactive:
		return fmt.Errorf("%w: your account is inactive, contact support", domain.ErrAccountNotActive)
	case domain.StatusPending:
		if !user.EmailVerified {
			return fmt.Errorf("%w: please verify your email address before logging in", domain.ErrAccountNotActive)
		}
		return user.Activate()
	default:
		return nil
	}
}

// Refresh verifies a refresh token, re-loads the user and issues a
// brand-new token pair. The new pair always includes a fresh refresh
// token regardless of the original remember-me choice.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*LoginOutput, error) {
	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.IsActive() {
		return nil, domain.ErrInvalidRefreshToken
	}

	bundle, err := s.tokens.Issue(token.IssueInput{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Permissions,
		RememberMe:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.metrics.ObserveTokenIssued(token.TypeAccess)
	s.metrics.ObserveTokenIssued(token.TypeRefresh)

	sess := s.rotateSession(ctx, user.ID, refreshToken, bundle)

	s.logger.Info().Str("user_id", user.ID).Msg("tokens refreshed")
	return &LoginOutput{User: user, Tokens: bundle, Session: sess}, nil
}

// rotateSession extends the session the refresh token belongs to, if it
// is still active. Refreshing without a matching session is fine: the
// session may have been created before session tracking was enabled.
func (s *LoginService) rotateSession(ctx context.Context, userID, refreshToken string, bundle *token.Bundle) *domain.Session {
	active, err := s.sessions.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil
	}
	for _, sess := range active {
		if sess.RefreshToken == refreshToken {
			sess.Refresh(bundle.AccessToken, bundle.RefreshToken, domain.DefaultSessionTTL)
			if err := s.sessions.Save(ctx, sess); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to rotate session")
			}
			return sess
		}
	}
	return nil
}

// ValidateToken verifies an access token and re-loads its user. Returns
// nil without error when the token or the account no longer authorizes
// requests; request middleware treats nil as unauthenticated.
func (s *LoginService) ValidateToken(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.IsActive() {
		return nil, nil
	}
	return user, nil
}

// Logout revokes the presented access token and deactivates the session
// it belongs to. An invalid token is a no-op: logout is idempotent.
func (s *LoginService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims.ID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke token")
	} else {
		s.metrics.ObserveRevocation()
	}

	active, err := s.sessions.ListActiveByUserID(ctx, claims.UserID())
	if err != nil {
		return nil
	}
	for _, sess := range active {
		if sess.Token == accessToken {
			if err := s.sessions.Deactivate(ctx, sess.ID); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to deactivate session")
			}
		}
	}
	return nil
}
