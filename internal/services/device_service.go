package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/repositories"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// tokenIssueAttempts bounds retries on a token uniqueness collision. With
// 256-bit tokens a single retry is already overkill.
const tokenIssueAttempts = 3

// DeviceService is the trusted-device registry: it issues bearer tokens and
// answers the gate's active-device lookups.
type DeviceService struct {
	deviceRepo  repositories.TrustedDeviceRepository
	email       EmailService // nil disables alerts
	audit       *pkglogger.AuditLogger
	logger      *slog.Logger
	trustWindow time.Duration
}

// NewDeviceService creates a new device service
func NewDeviceService(
	deviceRepo repositories.TrustedDeviceRepository,
	email EmailService,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
	trustWindow time.Duration,
) *DeviceService {
	return &DeviceService{
		deviceRepo:  deviceRepo,
		email:       email,
		audit:       audit,
		logger:      logger,
		trustWindow: trustWindow,
	}
}

// Issue creates a trusted device for the user and returns the bearer token
// the caller must place in a persistent cookie. Expiry is fixed at issuance;
// there is no renewal on use.
func (s *DeviceService) Issue(ctx context.Context, userID, userEmail, deviceLabel string) (*models.TrustedDevice, error) {
	var device *models.TrustedDevice

	for attempt := 0; attempt < tokenIssueAttempts; attempt++ {
		token, err := auth.GenerateDeviceToken()
		if err != nil {
			s.logger.Error("failed to generate device token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		candidate := &models.TrustedDevice{
			UserID:      userID,
			DeviceLabel: deviceLabel,
			Token:       token,
			ExpiresAt:   time.Now().Add(s.trustWindow),
		}

		err = s.deviceRepo.Create(ctx, candidate)
		if err == nil {
			device = candidate
			break
		}
		if errors.Is(err, models.ErrConflict) {
			s.logger.Warn("device token collision, retrying", slog.String("user_id", userID))
			continue
		}
		s.logger.Error("failed to create trusted device", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if device == nil {
		s.logger.Error("device token collisions exhausted retries", slog.String("user_id", userID))
		return nil, models.ErrInternalServer
	}

	s.audit.LogDeviceTrusted(userID, deviceLabel, device.ExpiresAt)

	// Alert failure never rolls back the trust decision
	if s.email != nil && userEmail != "" {
		if err := s.email.SendDeviceTrustedAlert(ctx, userEmail, deviceLabel, device.ExpiresAt); err != nil {
			s.logger.Error("failed to send device alert",
				slog.String("email", pkglogger.SanitizedEmail(userEmail)),
				slog.Any("error", err))
		}
	}

	return device, nil
}

// IsActive reports whether the exact (user, token) pair exists and is not
// expired. A missing or unknown token is a plain false, not an error; only
// storage failures propagate, and those make the gate fail closed.
func (s *DeviceService) IsActive(ctx context.Context, userID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	device, err := s.deviceRepo.GetByUserAndToken(ctx, userID, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return device.IsActive(time.Now()), nil
}

// DeleteExpired removes expired device rows, used by the background reaper
func (s *DeviceService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.deviceRepo.DeleteExpired(ctx)
}
