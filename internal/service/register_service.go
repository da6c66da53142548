package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-auth/internal/domain"
	"github.com/prn-tf/meridian-auth/internal/metrics"
	"github.com/prn-tf/meridian-auth/internal/pkg/crypto"
	"github.com/prn-tf/meridian-auth/internal/repository"
)

// RegisterService handles user registration and email verification.
type RegisterService struct {
	users       repository.UserRepository
	permissions repository.PermissionRepository
	hasher      *crypto.PasswordHasher
	sender      VerificationSender
	defaultRole domain.Role
	metrics     *metrics.AuthMetrics
	logger      zerolog.Logger
}

// NewRegisterService creates a RegisterService. The verification sender
// is optional; without one, registrations complete without sending a
// verification email. Metrics may be nil.
func NewRegisterService(
	users repository.UserRepository,
	permissions repository.PermissionRepository,
	hasher *crypto.PasswordHasher,
	sender VerificationSender,
	m *metrics.AuthMetrics,
	logger zerolog.Logger,
) *RegisterService {
	return &RegisterService{
		users:       users,
		permissions: permissions,
		hasher:      hasher,
		sender:      sender,
		defaultRole: domain.RoleUser,
		metrics:     m,
		logger:      logger.With().Str("service", "register").Logger(),
	}
}

// RegisterInput contains the data submitted for registration.
type RegisterInput struct {
	Email           string
	Username        string
	FullName        string
	Password        string
	PasswordConfirm string
	Phone           string
	Department      string
}

// RegisterOutput contains the result of a registration.
type RegisterOutput struct {
	User *domain.User

	// VerificationToken is set when a verification email was sent.
	VerificationToken string

	Message string
}

// Register validates the input and creates a pending user with the
// default permission set for the default role. Validation checks run in
// a fixed order and short-circuit on the first failure, each with its
// own error kind.
func (s *RegisterService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	email, err := domain.NormalizeEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidRegistration)
	}

	if input.Password != input.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, err
	}

	if err := domain.ValidateFullName(input.FullName); err != nil {
		return nil, err
	}

	if exists, err := s.users.ExistsByEmail(ctx, email); err != nil {
		s.logger.Error().Err(err).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	} else if exists {
		return nil, domain.ErrEmailAlreadyExists
	}

	if exists, err := s.users.ExistsByUsername(ctx, input.Username); err != nil {
		s.logger.Error().Err(err).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	} else if exists {
		return nil, domain.ErrUsernameAlreadyExists
	}

	hashStart := time.Now()
	hash, err := s.hasher.Hash(input.Password)
	s.metrics.ObservePasswordHash(time.Since(hashStart).Seconds())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(email, input.Username, input.FullName, hash, s.defaultRole)
	user.Phone = input.Phone
	user.Department = input.Department
	user.Metadata["password_strength"] = domain.PasswordStrength(input.Password)

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration. Re-check the
			// email to learn which unique constraint fired.
			if exists, checkErr := s.users.ExistsByEmail(ctx, email); checkErr == nil && !exists {
				return nil, domain.ErrUsernameAlreadyExists
			}
			return nil, domain.ErrEmailAlreadyExists
		}
		s.logger.Error().Err(err).Msg("failed to save user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.permissions.ReplaceForUser(ctx, saved.ID, domain.DefaultPermissionSet(saved.ID, saved.Role)); err != nil {
		s.logger.Error().Err(err).Str("user_id", saved.ID).Msg("failed to store default permissions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	out := &RegisterOutput{User: saved, Message: "Registration successful"}

	if s.sender != nil {
		tok, err := s.sender.SendVerification(ctx, saved.Email, saved.Username, saved.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", saved.ID).Msg("failed to send verification email")
		} else {
			out.VerificationToken = tok
			out.Message += ". Please check your email to verify your account."
		}
	}

	s.metrics.ObserveRegistration()
	s.logger.Info().
		Str("user_id", saved.ID).
		Str("username", saved.Username).
		Msg("user registered")

	return out, nil
}

// VerifyEmail consumes a verification token and activates the user.
func (s *RegisterService) VerifyEmail(ctx context.Context, verificationToken string) (*domain.User, error) {
	if s.sender == nil {
		return nil, ErrVerificationNotConfigured
	}

	userID, err := s.sender.ConsumeToken(ctx, verificationToken)
	if err != nil {
		return nil, domain.ErrInvalidVerification
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user = user.Clone()
	if err := user.Activate(); err != nil {
		return nil, err
	}
	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("user_id", saved.ID).Msg("email verified, account activated")
	return saved, nil
}

// ResendVerification sends a fresh verification token. Already-verified
// accounts are rejected.
func (s *RegisterService) ResendVerification(ctx context.Context, email string) (string, error) {
	if s.sender == nil {
		return "", ErrVerificationNotConfigured
	}

	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return "", fmt.Errorf("%w: invalid email format", domain.ErrInvalidRegistration)
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if user.EmailVerified {
		return "", domain.ErrAlreadyVerified
	}

	return s.sender.SendVerification(ctx, user.Email, user.Username, user.ID)
}
