package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/services"
)

func testMFAConfig() MFAConfig {
	return MFAConfig{
		SetupPath:        "/admin/mfa/setup",
		VerifyPath:       "/admin/mfa/verify",
		DashboardPath:    "/admin/",
		DeviceCookieName: "otpgate_device",
		TrustDays:        30,
	}
}

func newMFAHandler(t *testing.T, enrollment *MockEnrollmentService, verification *MockVerificationService) *MFAHandler {
	return NewMFAHandler(enrollment, verification, newTestRenderer(t), auth.CookieConfig{}, testMFAConfig())
}

func mfaClaims() *auth.SessionClaims {
	return &auth.SessionClaims{
		UserID:           "user123",
		Email:            "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{ID: "sess-1"},
	}
}

func postForm(path string, form url.Values, claims *auth.SessionClaims) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if claims != nil {
		req = withClaims(req, claims)
	}
	return req
}

func testChallenge() *services.SetupChallenge {
	return &services.SetupChallenge{
		ProvisioningURI: "otpauth://totp/OTPGate:alice@example.com?secret=JBSWY3DP",
		QRCode:          "data:image/png;base64,abc123",
		ManualKey:       "JBSWY3DPEHPK3PXP",
	}
}

func TestMFAHandler_SetupPage(t *testing.T) {
	enrollment := &MockEnrollmentService{
		StartSetupFunc: func(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error) {
			assert.Equal(t, "user123", userID)
			assert.Equal(t, "alice@example.com", accountName)
			return testChallenge(), nil
		},
	}
	handler := newMFAHandler(t, enrollment, &MockVerificationService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/admin/mfa/setup", nil), mfaClaims())
	rec := httptest.NewRecorder()

	handler.SetupPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,abc123")
	assert.Contains(t, rec.Body.String(), "JBSWY3DPEHPK3PXP")
}

func TestMFAHandler_SetupPage_Anonymous(t *testing.T) {
	handler := newMFAHandler(t, &MockEnrollmentService{}, &MockVerificationService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/mfa/setup", nil)
	rec := httptest.NewRecorder()

	handler.SetupPage(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestMFAHandler_Setup_ValidCode(t *testing.T) {
	enrollment := &MockEnrollmentService{
		ConfirmSetupFunc: func(ctx context.Context, userID, code string) error {
			assert.Equal(t, "123456", code)
			return nil
		},
	}
	handler := newMFAHandler(t, enrollment, &MockVerificationService{})

	req := postForm("/admin/mfa/setup", url.Values{"code": {"123456"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Setup(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/mfa/verify", rec.Header().Get("Location"))
}

func TestMFAHandler_Setup_InvalidCode(t *testing.T) {
	enrollment := &MockEnrollmentService{
		StartSetupFunc: func(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error) {
			return testChallenge(), nil
		},
		ConfirmSetupFunc: func(ctx context.Context, userID, code string) error {
			return models.ErrInvalidCode
		},
	}
	handler := newMFAHandler(t, enrollment, &MockVerificationService{})

	req := postForm("/admin/mfa/setup", url.Values{"code": {"654321"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Setup(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "didn&#39;t match")
	// The page still shows the same enrollment challenge
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,abc123")
}

func TestMFAHandler_Setup_MalformedCodeSkipsService(t *testing.T) {
	confirmCalled := false
	enrollment := &MockEnrollmentService{
		StartSetupFunc: func(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error) {
			return testChallenge(), nil
		},
		ConfirmSetupFunc: func(ctx context.Context, userID, code string) error {
			confirmCalled = true
			return nil
		},
	}
	handler := newMFAHandler(t, enrollment, &MockVerificationService{})

	req := postForm("/admin/mfa/setup", url.Values{"code": {"12ab56"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Setup(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, confirmCalled)
}

func TestMFAHandler_VerifyPage(t *testing.T) {
	handler := newMFAHandler(t, &MockEnrollmentService{}, &MockVerificationService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/admin/mfa/verify", nil), mfaClaims())
	rec := httptest.NewRecorder()

	handler.VerifyPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "6-digit code")
	assert.Contains(t, rec.Body.String(), "trust_device")
}

func TestMFAHandler_Verify_ValidCode(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
			assert.Equal(t, "123456", code)
			assert.False(t, trustDevice)
			return &services.VerifyResult{}, nil
		},
	}
	handler := newMFAHandler(t, &MockEnrollmentService{}, verification)

	req := postForm("/admin/mfa/verify", url.Values{"code": {"123456"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(t, rec, "otpgate_device"))
}

func TestMFAHandler_Verify_TrustDeviceSetsCookie(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
			assert.True(t, trustDevice)
			return &services.VerifyResult{DeviceToken: "device-token-abc"}, nil
		},
	}
	handler := newMFAHandler(t, &MockEnrollmentService{}, verification)

	req := postForm("/admin/mfa/verify", url.Values{"code": {"123456"}, "trust_device": {"1"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)

	cookie := findCookie(t, rec, "otpgate_device")
	require.NotNil(t, cookie)
	assert.Equal(t, "device-token-abc", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Positive(t, cookie.MaxAge)
}

func TestMFAHandler_Verify_InvalidCode(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
			return nil, models.ErrInvalidCode
		},
	}
	handler := newMFAHandler(t, &MockEnrollmentService{}, verification)

	req := postForm("/admin/mfa/verify", url.Values{"code": {"654321"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "didn&#39;t match")
	assert.Nil(t, findCookie(t, rec, "otpgate_device"))
}

func TestMFAHandler_Verify_MissingEnrollment(t *testing.T) {
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
			return nil, models.ErrVerificationMissing
		},
	}
	handler := newMFAHandler(t, &MockEnrollmentService{}, verification)

	req := postForm("/admin/mfa/verify", url.Values{"code": {"123456"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMFAHandler_Verify_MalformedCodeSkipsService(t *testing.T) {
	verifyCalled := false
	verification := &MockVerificationService{
		VerifyFunc: func(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error) {
			verifyCalled = true
			return &services.VerifyResult{}, nil
		},
	}
	handler := newMFAHandler(t, &MockEnrollmentService{}, verification)

	req := postForm("/admin/mfa/verify", url.Values{"code": {"1234567"}}, mfaClaims())
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, verifyCalled)
}
