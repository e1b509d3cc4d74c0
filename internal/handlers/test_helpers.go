package handlers

import (
	"context"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc func(ctx context.Context, email, password string) (string, *auth.SessionClaims, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, *auth.SessionClaims, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return "", nil, models.ErrUnauthorized
}

// MockSessionClearer implements SessionClearer for testing
type MockSessionClearer struct {
	ClearFunc func(ctx context.Context, sid string) error
}

func (m *MockSessionClearer) Clear(ctx context.Context, sid string) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, sid)
	}
	return nil
}

// MockEnrollmentService implements EnrollmentServiceInterface for testing
type MockEnrollmentService struct {
	StartSetupFunc   func(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error)
	ConfirmSetupFunc func(ctx context.Context, userID, code string) error
}

func (m *MockEnrollmentService) StartSetup(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error) {
	if m.StartSetupFunc != nil {
		return m.StartSetupFunc(ctx, userID, accountName)
	}
	return nil, models.ErrInternalServer
}

func (m *MockEnrollmentService) ConfirmSetup(ctx context.Context, userID, code string) error {
	if m.ConfirmSetupFunc != nil {
		return m.ConfirmSetupFunc(ctx, userID, code)
	}
	return nil
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	VerifyFunc func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error)
}

func (m *MockVerificationService) Verify(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, user, email, code, trustDevice, deviceLabel)
	}
	return nil, models.ErrInvalidCode
}
