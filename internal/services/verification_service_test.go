package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/session"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

func testClaims() *auth.SessionClaims {
	return &auth.SessionClaims{
		UserID: "user123",
		Email:  "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "sess-1",
		},
	}
}

func newVerificationFixture(t *testing.T, verificationRepo *MockOTPVerificationRepository, deviceRepo *MockTrustedDeviceRepository) (*VerificationService, *session.Manager, *auth.SecretCipher) {
	t.Helper()
	cipher := newTestCipher(t)
	logger := slog.Default()
	audit := pkglogger.NewAuditLogger(logger)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	devices := NewDeviceService(deviceRepo, nil, audit, logger, 30*24*time.Hour)
	svc := NewVerificationService(verificationRepo, cipher, auth.NewTOTPManager("OTPGate"), sessions, devices, audit, logger)
	return svc, sessions, cipher
}

func sealedSecret(t *testing.T, cipher *auth.SecretCipher, secret string) []byte {
	t.Helper()
	sealed, err := cipher.Seal([]byte(secret))
	require.NoError(t, err)
	return sealed
}

const testSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

func TestVerificationService_Verify_ValidCode(t *testing.T) {
	var sealed []byte
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return &models.OTPVerification{ID: "ver_1", UserID: userID, SecretCipher: sealed, Confirmed: true}, nil
		},
	}

	svc, sessions, cipher := newVerificationFixture(t, mockRepo, &MockTrustedDeviceRepository{})
	sealed = sealedSecret(t, cipher, testSecret)

	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", code, false, "")

	require.NoError(t, err)
	assert.Empty(t, result.DeviceToken)

	verified, err := sessions.MFAVerified(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestVerificationService_Verify_InvalidCode(t *testing.T) {
	var sealed []byte
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return &models.OTPVerification{ID: "ver_1", UserID: userID, SecretCipher: sealed, Confirmed: true}, nil
		},
	}

	svc, sessions, cipher := newVerificationFixture(t, mockRepo, &MockTrustedDeviceRepository{})
	sealed = sealedSecret(t, cipher, testSecret)

	_, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", "000000", false, "")
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	verified, err := sessions.MFAVerified(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestVerificationService_Verify_NoEnrollment(t *testing.T) {
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return nil, models.ErrNotFound
		},
	}

	svc, _, _ := newVerificationFixture(t, mockRepo, &MockTrustedDeviceRepository{})

	_, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", "123456", false, "")
	assert.ErrorIs(t, err, models.ErrVerificationMissing)
}

func TestVerificationService_Verify_UnconfirmedEnrollment(t *testing.T) {
	var sealed []byte
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return &models.OTPVerification{ID: "ver_1", UserID: userID, SecretCipher: sealed, Confirmed: false}, nil
		},
	}

	svc, _, cipher := newVerificationFixture(t, mockRepo, &MockTrustedDeviceRepository{})
	sealed = sealedSecret(t, cipher, testSecret)

	_, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", "123456", false, "")
	assert.ErrorIs(t, err, models.ErrVerificationMissing)
}

func TestVerificationService_Verify_TrustDeviceIssuesToken(t *testing.T) {
	var sealed []byte
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return &models.OTPVerification{ID: "ver_1", UserID: userID, SecretCipher: sealed, Confirmed: true}, nil
		},
	}
	var created *models.TrustedDevice
	mockDeviceRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			created = device
			return nil
		},
	}

	svc, _, cipher := newVerificationFixture(t, mockRepo, mockDeviceRepo)
	sealed = sealedSecret(t, cipher, testSecret)

	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", code, true, "Firefox on Linux")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, created.Token, result.DeviceToken)
	assert.Equal(t, "user123", created.UserID)
	assert.Equal(t, "Firefox on Linux", created.DeviceLabel)
}

func TestVerificationService_Verify_TrustGrantFailureStillVerifies(t *testing.T) {
	var sealed []byte
	mockRepo := &MockOTPVerificationRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.OTPVerification, error) {
			return &models.OTPVerification{ID: "ver_1", UserID: userID, SecretCipher: sealed, Confirmed: true}, nil
		},
	}
	mockDeviceRepo := &MockTrustedDeviceRepository{
		CreateFunc: func(ctx context.Context, device *models.TrustedDevice) error {
			return models.ErrInternalServer
		},
	}

	svc, sessions, cipher := newVerificationFixture(t, mockRepo, mockDeviceRepo)
	sealed = sealedSecret(t, cipher, testSecret)

	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), testClaims(), "alice@example.com", code, true, "")

	require.NoError(t, err)
	assert.Empty(t, result.DeviceToken)

	verified, err := sessions.MFAVerified(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, verified)
}
