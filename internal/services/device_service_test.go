package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyshaw/otpgate/internal/models"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

func newDeviceService(repo *MockTrustedDeviceRepository, email EmailService) *DeviceService {
	logger := slog.Default()
	return NewDeviceService(repo, email, pkglogger.NewAuditLogger(logger), logger, 30*24*time.Hour)
}

func TestDeviceService_Issue_Success(t *testing.T) {
	var created *models.TrustedDevice
	mockRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			created = device
			return nil
		},
	}

	svc := newDeviceService(mockRepo, nil)

	device, err := svc.Issue(context.Background(), "user123", "alice@example.com", "Firefox on Linux")

	require.NoError(t, err)
	assert.NotEmpty(t, device.Token)
	assert.Equal(t, created.Token, device.Token)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), device.ExpiresAt, time.Minute)
}

func TestDeviceService_Issue_RetriesOnTokenCollision(t *testing.T) {
	calls := 0
	mockRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			calls++
			if calls == 1 {
				return models.ErrConflict
			}
			return nil
		},
	}

	svc := newDeviceService(mockRepo, nil)

	device, err := svc.Issue(context.Background(), "user123", "alice@example.com", "")

	require.NoError(t, err)
	assert.NotEmpty(t, device.Token)
	assert.Equal(t, 2, calls)
}

func TestDeviceService_Issue_ExhaustsRetries(t *testing.T) {
	mockRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			return models.ErrConflict
		},
	}

	svc := newDeviceService(mockRepo, nil)

	_, err := svc.Issue(context.Background(), "user123", "alice@example.com", "")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestDeviceService_Issue_AlertFailureIsNotFatal(t *testing.T) {
	mockRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			return nil
		},
	}
	mockEmail := &MockEmailService{
		SendDeviceTrustedAlertFunc: func(ctx context.Context, email, deviceLabel string, expiresAt time.Time) error {
			return models.ErrInternalServer
		},
	}

	svc := newDeviceService(mockRepo, mockEmail)

	device, err := svc.Issue(context.Background(), "user123", "alice@example.com", "")

	require.NoError(t, err)
	assert.NotEmpty(t, device.Token)
}

func TestDeviceService_IsActive(t *testing.T) {
	t.Run("active device", func(t *testing.T) {
		mockRepo := &MockTrustedDeviceRepository{
			GetByUserAndTokenFunc: func(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
				return &models.TrustedDevice{UserID: userID, Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
		}
		svc := newDeviceService(mockRepo, nil)

		active, err := svc.IsActive(context.Background(), "user123", "tok")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("expired device", func(t *testing.T) {
		mockRepo := &MockTrustedDeviceRepository{
			GetByUserAndTokenFunc: func(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
				return &models.TrustedDevice{UserID: userID, Token: token, ExpiresAt: time.Now().Add(-time.Minute)}, nil
			},
		}
		svc := newDeviceService(mockRepo, nil)

		active, err := svc.IsActive(context.Background(), "user123", "tok")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("unknown token", func(t *testing.T) {
		mockRepo := &MockTrustedDeviceRepository{
			GetByUserAndTokenFunc: func(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
				return nil, models.ErrNotFound
			},
		}
		svc := newDeviceService(mockRepo, nil)

		active, err := svc.IsActive(context.Background(), "user123", "tok")
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("empty token skips lookup", func(t *testing.T) {
		called := false
		mockRepo := &MockTrustedDeviceRepository{
			GetByUserAndTokenFunc: func(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
				called = true
				return nil, models.ErrNotFound
			},
		}
		svc := newDeviceService(mockRepo, nil)

		active, err := svc.IsActive(context.Background(), "user123", "")
		require.NoError(t, err)
		assert.False(t, active)
		assert.False(t, called)
	})

	t.Run("storage error propagates", func(t *testing.T) {
		mockRepo := &MockTrustedDeviceRepository{
			GetByUserAndTokenFunc: func(ctx context.Context, userID, token string) (*models.TrustedDevice, error) {
				return nil, models.ErrInternalServer
			},
		}
		svc := newDeviceService(mockRepo, nil)

		_, err := svc.IsActive(context.Background(), "user123", "tok")
		assert.Error(t, err)
	})
}

func TestDeviceService_DeleteExpired(t *testing.T) {
	mockRepo := &MockTrustedDeviceRepository{
		DeleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 4, nil
		},
	}
	svc := newDeviceService(mockRepo, nil)

	n, err := svc.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
