package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/repositories"
	pkgauth "github.com/tobyshaw/otpgate/pkg/auth"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// AuthService handles first-factor login for staff users.
type AuthService struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password both return ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *auth.SessionClaims, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("login attempt for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return "", nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load user by email", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login attempt with wrong password",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return "", nil, models.ErrUnauthorized
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	return token, claims, nil
}
