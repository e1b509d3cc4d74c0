package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/repositories"
	"github.com/tobyshaw/otpgate/internal/session"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// VerifyResult carries what the verify handler needs after a successful
// check: a device token to set when the user asked to be remembered.
type VerifyResult struct {
	DeviceToken string
}

// VerificationService owns the per-session verify flow: code check, session
// flag, and optional device trust.
type VerificationService struct {
	verificationRepo repositories.OTPVerificationRepository
	cipher           *auth.SecretCipher
	totp             *auth.TOTPManager
	sessions         *session.Manager
	devices          *DeviceService
	audit            *pkglogger.AuditLogger
	logger           *slog.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	verificationRepo repositories.OTPVerificationRepository,
	cipher *auth.SecretCipher,
	totp *auth.TOTPManager,
	sessions *session.Manager,
	devices *DeviceService,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
) *VerificationService {
	return &VerificationService{
		verificationRepo: verificationRepo,
		cipher:           cipher,
		totp:             totp,
		sessions:         sessions,
		devices:          devices,
		audit:            audit,
		logger:           logger,
	}
}

// Verify checks a submitted code against the user's confirmed enrollment.
// On success it marks the session verified and, when trustDevice is set,
// issues a trusted device token. Reaching this without a confirmed
// enrollment is an invariant violation, not a user error.
func (s *VerificationService) Verify(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*VerifyResult, error) {
	verification, err := s.verificationRepo.GetByUserID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Error("verify reached without enrollment", slog.String("user_id", user.UserID))
			return nil, models.ErrVerificationMissing
		}
		s.logger.Error("failed to load verification", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !verification.Confirmed {
		s.logger.Error("verify reached with unconfirmed enrollment", slog.String("user_id", user.UserID))
		return nil, models.ErrVerificationMissing
	}

	secret, err := s.cipher.Open(verification.SecretCipher)
	if err != nil {
		s.logger.Error("failed to open stored secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !s.totp.VerifyCode(string(secret), code) {
		s.audit.LogVerificationAttempt(pkglogger.VerificationEvent{
			EventType: "verify", UserID: user.UserID, Success: false, FailureReason: "invalid_code",
		})
		return nil, models.ErrInvalidCode
	}

	if err := s.sessions.SetMFAVerified(ctx, user.SessionID()); err != nil {
		s.logger.Error("failed to set session verification flag", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogVerificationAttempt(pkglogger.VerificationEvent{
		EventType: "verify", UserID: user.UserID, Success: true,
	})

	result := &VerifyResult{}
	if trustDevice {
		device, err := s.devices.Issue(ctx, user.UserID, email, deviceLabel)
		if err != nil {
			// The session is already verified; a failed trust grant only
			// means the user will be prompted again next session.
			s.logger.Error("failed to issue trusted device token", slog.Any("error", err))
		} else {
			result.DeviceToken = device.Token
		}
	}

	return result, nil
}
