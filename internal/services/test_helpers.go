package services

import (
	"context"
	"time"

	"github.com/tobyshaw/otpgate/internal/models"
)

// MockOTPVerificationRepository implements OTPVerificationRepository for testing
type MockOTPVerificationRepository struct {
	GetOrCreateFunc     func(ctx context.Context, userID string, candidateCipher []byte) (*models.OTPVerification, bool, error)
	GetByUserIDFunc     func(ctx context.Context, userID string) (*models.OTPVerification, error)
	MarkConfirmedFunc   func(ctx context.Context, userID string) error
	ConfirmedExistsFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *MockOTPVerificationRepository) GetOrCreate(ctx context.Context, userID string, candidateCipher []byte) (*models.OTPVerification, bool, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, userID, candidateCipher)
	}
	return nil, false, models.ErrInternalServer
}

func (m *MockOTPVerificationRepository) GetByUserID(ctx context.Context, userID string) (*models.OTPVerification, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockOTPVerificationRepository) MarkConfirmed(ctx context.Context, userID string) error {
	if m.MarkConfirmedFunc != nil {
		return m.MarkConfirmedFunc(ctx, userID)
	}
	return nil
}

func (m *MockOTPVerificationRepository) ConfirmedExists(ctx context.Context, userID string) (bool, error) {
	if m.ConfirmedExistsFunc != nil {
		return m.ConfirmedExistsFunc(ctx, userID)
	}
	return false, nil
}

// MockTrustedDeviceRepository implements TrustedDeviceRepository for testing
type MockTrustedDeviceRepository struct {
	CreateFunc            func(ctx context.Context, device *models.TrustedDevice) error
	GetByUserAndTokenFunc func(ctx context.Context, userID, token string) (*models.TrustedDevice, error)
	DeleteExpiredFunc     func(ctx context.Context) (int64, error)
}

func (m *MockTrustedDeviceRepository) Create(ctx context.Context, device *models.TrustedDevice) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, device)
	}
	return nil
}

func (m *MockTrustedDeviceRepository) GetByUserAndToken(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
	if m.GetByUserAndTokenFunc != nil {
		return m.GetByUserAndTokenFunc(ctx, userID, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockTrustedDeviceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	return 0, nil
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendDeviceTrustedAlertFunc func(ctx context.Context, email, deviceLabel string, expiresAt time.Time) error
}

func (m *MockEmailService) SendDeviceTrustedAlert(ctx context.Context, email, deviceLabel string, expiresAt time.Time) error {
	if m.SendDeviceTrustedAlertFunc != nil {
		return m.SendDeviceTrustedAlertFunc(ctx, email, deviceLabel, expiresAt)
	}
	return nil
}
