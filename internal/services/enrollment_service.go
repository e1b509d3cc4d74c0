package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/repositories"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// SetupChallenge is what the setup page needs to render
type SetupChallenge struct {
	ProvisioningURI string
	QRCode          string // PNG data URL
	ManualKey       string // base32 secret for manual entry
	Confirmed       bool
}

// EnrollmentService owns the setup half of the verification flow: lazy
// secret creation and the confirm-on-first-valid-code transition.
type EnrollmentService struct {
	verificationRepo repositories.OTPVerificationRepository
	cipher           *auth.SecretCipher
	totp             *auth.TOTPManager
	audit            *pkglogger.AuditLogger
	logger           *slog.Logger
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	verificationRepo repositories.OTPVerificationRepository,
	cipher *auth.SecretCipher,
	totp *auth.TOTPManager,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		verificationRepo: verificationRepo,
		cipher:           cipher,
		totp:             totp,
		audit:            audit,
		logger:           logger,
	}
}

// StartSetup fetches or lazily creates the user's verification and returns
// the provisioning challenge. Visiting setup again reuses the stored secret;
// it is never rotated here.
func (s *EnrollmentService) StartSetup(ctx context.Context, userID, accountName string) (*SetupChallenge, error) {
	secret, verification, err := s.getOrCreateSecret(ctx, userID)
	if err != nil {
		return nil, err
	}

	uri, err := s.totp.ProvisioningURI(secret, accountName)
	if err != nil {
		s.logger.Error("failed to build provisioning URI", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	qr, err := s.totp.QRCodeDataURL(uri)
	if err != nil {
		s.logger.Error("failed to render QR code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &SetupChallenge{
		ProvisioningURI: uri,
		QRCode:          qr,
		ManualKey:       secret,
		Confirmed:       verification.Confirmed,
	}, nil
}

// ConfirmSetup verifies the first code against the stored secret and marks
// the enrollment confirmed. A wrong code leaves the secret untouched.
func (s *EnrollmentService) ConfirmSetup(ctx context.Context, userID, code string) error {
	secret, verification, err := s.getOrCreateSecret(ctx, userID)
	if err != nil {
		return err
	}

	if !s.totp.VerifyCode(secret, code) {
		s.audit.LogVerificationAttempt(pkglogger.VerificationEvent{
			EventType: "setup", UserID: userID, Success: false, FailureReason: "invalid_code",
		})
		return models.ErrInvalidCode
	}

	// Confirmed is monotonic: re-confirming is a no-op, never a reset
	if !verification.Confirmed {
		if err := s.verificationRepo.MarkConfirmed(ctx, userID); err != nil {
			s.logger.Error("failed to mark verification confirmed", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.audit.LogVerificationAttempt(pkglogger.VerificationEvent{
		EventType: "setup", UserID: userID, Success: true,
	})
	s.logger.Info("otp enrollment confirmed", slog.String("user_id", userID))
	return nil
}

// getOrCreateSecret generates a candidate secret, then defers to the
// storage layer's create-if-absent so concurrent first visits converge on
// one secret.
func (s *EnrollmentService) getOrCreateSecret(ctx context.Context, userID string) (string, *models.OTPVerification, error) {
	secret, err := s.totp.GenerateSecret()
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	sealed, err := s.cipher.Seal([]byte(secret))
	if err != nil {
		s.logger.Error("failed to seal TOTP secret", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	verification, created, err := s.verificationRepo.GetOrCreate(ctx, userID, sealed)
	if err != nil {
		s.logger.Error("failed to get or create verification", slog.Any("error", err))
		return "", nil, models.ErrInternalServer
	}

	if created {
		return secret, verification, nil
	}

	stored, err := s.cipher.Open(verification.SecretCipher)
	if err != nil {
		if errors.Is(err, models.ErrIntegrity) {
			s.logger.Error("stored secret failed integrity check", slog.String("user_id", userID))
		} else {
			s.logger.Error("failed to open stored secret", slog.Any("error", err))
		}
		return "", nil, models.ErrInternalServer
	}

	return string(stored), verification, nil
}
