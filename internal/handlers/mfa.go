package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/render"
	"github.com/tobyshaw/otpgate/internal/services"
)

// EnrollmentServiceInterface defines the interface for the setup flow
type EnrollmentServiceInterface interface {
	StartSetup(ctx context.Context, userID, accountName string) (*services.SetupChallenge, error)
	ConfirmSetup(ctx context.Context, userID, code string) error
}

// VerificationServiceInterface defines the interface for the verify flow
type VerificationServiceInterface interface {
	Verify(ctx context.Context, user *auth.SessionClaims, email, code string, trustDevice bool, deviceLabel string) (*services.VerifyResult, error)
}

// MFAConfig carries the paths and cookie settings the pages need
type MFAConfig struct {
	SetupPath        string
	VerifyPath       string
	DashboardPath    string
	DeviceCookieName string
	TrustDays        int
}

// MFAHandler handles the second-factor setup and verify pages
type MFAHandler struct {
	enrollment   EnrollmentServiceInterface
	verification VerificationServiceInterface
	renderer     *render.Renderer
	cookies      auth.CookieConfig
	config       MFAConfig
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(enrollment EnrollmentServiceInterface, verification VerificationServiceInterface, renderer *render.Renderer, cookies auth.CookieConfig, config MFAConfig) *MFAHandler {
	return &MFAHandler{
		enrollment:   enrollment,
		verification: verification,
		renderer:     renderer,
		cookies:      cookies,
		config:       config,
	}
}

// SetupPage handles GET on the setup path
func (h *MFAHandler) SetupPage(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	challenge, err := h.enrollment.StartSetup(r.Context(), claims.UserID, claims.Email)
	if err != nil {
		h.renderer.Error(w, http.StatusInternalServerError, "could not prepare enrollment, please try again")
		return
	}

	h.renderSetup(w, http.StatusOK, challenge, "")
}

// Setup handles POST on the setup path
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form := CodeForm{Code: r.PostFormValue("code")}
	if err := ValidateForm(form); err != nil {
		h.rerenderSetup(w, r, claims, "Enter the 6-digit code from your app.")
		return
	}

	err := h.enrollment.ConfirmSetup(r.Context(), claims.UserID, form.Code)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCode) {
			h.rerenderSetup(w, r, claims, "That code didn't match. Check your app and try again.")
			return
		}
		h.renderer.Error(w, http.StatusInternalServerError, "could not confirm enrollment, please try again")
		return
	}

	// Enrollment alone does not verify the session; the verify step still runs
	http.Redirect(w, r, h.config.VerifyPath, http.StatusFound)
}

// VerifyPage handles GET on the verify path
func (h *MFAHandler) VerifyPage(w http.ResponseWriter, r *http.Request) {
	h.renderVerify(w, http.StatusOK, "")
}

// Verify handles POST on the verify path
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form := CodeForm{Code: r.PostFormValue("code")}
	if err := ValidateForm(form); err != nil {
		h.renderVerify(w, http.StatusBadRequest, "Enter the 6-digit code from your app.")
		return
	}

	trustDevice := r.PostFormValue("trust_device") == "1"
	result, err := h.verification.Verify(r.Context(), claims, claims.Email, form.Code, trustDevice, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCode):
			h.renderVerify(w, http.StatusUnauthorized, "That code didn't match. Check your app and try again.")
		case errors.Is(err, models.ErrVerificationMissing):
			// The gate should have sent this user to setup first
			h.renderer.Error(w, http.StatusInternalServerError, "two-factor enrollment is in an inconsistent state, contact an administrator")
		default:
			h.renderer.Error(w, http.StatusInternalServerError, "could not verify the code, please try again")
		}
		return
	}

	if result.DeviceToken != "" {
		auth.SetDeviceTokenCookie(w, h.config.DeviceCookieName, result.DeviceToken, deviceCookieExpiry(h.config.TrustDays), h.cookies)
	}

	http.Redirect(w, r, h.config.DashboardPath, http.StatusFound)
}

func deviceCookieExpiry(trustDays int) time.Time {
	return time.Now().Add(time.Duration(trustDays) * 24 * time.Hour)
}

func (h *MFAHandler) renderSetup(w http.ResponseWriter, status int, challenge *services.SetupChallenge, message string) {
	h.renderer.HTML(w, status, "mfa_setup.html", map[string]any{
		"QRCode":    challenge.QRCode,
		"ManualKey": challenge.ManualKey,
		"SetupPath": h.config.SetupPath,
		"Error":     message,
	})
}

// rerenderSetup reloads the challenge so the page keeps showing the same QR
// code next to the error
func (h *MFAHandler) rerenderSetup(w http.ResponseWriter, r *http.Request, claims *auth.SessionClaims, message string) {
	challenge, err := h.enrollment.StartSetup(r.Context(), claims.UserID, claims.Email)
	if err != nil {
		h.renderer.Error(w, http.StatusInternalServerError, "could not prepare enrollment, please try again")
		return
	}
	h.renderSetup(w, http.StatusBadRequest, challenge, message)
}

func (h *MFAHandler) renderVerify(w http.ResponseWriter, status int, message string) {
	h.renderer.HTML(w, status, "mfa_verify.html", map[string]any{
		"VerifyPath": h.config.VerifyPath,
		"TrustDays":  h.config.TrustDays,
		"Error":      message,
	})
}
