package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/render"
)

// AuthServiceInterface defines the interface for first-factor login
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, *auth.SessionClaims, error)
}

// SessionClearer drops the server-side session state on logout
type SessionClearer interface {
	Clear(ctx context.Context, sid string) error
}

// AuthHandler handles the sign-in and sign-out pages
type AuthHandler struct {
	service           AuthServiceInterface
	sessions          SessionClearer
	renderer          *render.Renderer
	cookies           auth.CookieConfig
	sessionCookieName string
	sessionTTL        time.Duration
	dashboardPath     string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, sessions SessionClearer, renderer *render.Renderer, cookies auth.CookieConfig, sessionCookieName string, sessionTTL time.Duration, dashboardPath string) *AuthHandler {
	return &AuthHandler{
		service:           service,
		sessions:          sessions,
		renderer:          renderer,
		cookies:           cookies,
		sessionCookieName: sessionCookieName,
		sessionTTL:        sessionTTL,
		dashboardPath:     dashboardPath,
	}
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.HTML(w, http.StatusOK, "login.html", map[string]any{
		"Email": "",
		"Next":  safeNext(r.URL.Query().Get("next")),
		"Error": "",
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form := LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.URL.Query().Get("next"))

	if err := ValidateForm(form); err != nil {
		h.renderLoginError(w, http.StatusBadRequest, form.Email, next, err.Error())
		return
	}

	token, _, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			h.renderLoginError(w, http.StatusUnauthorized, form.Email, next, "Invalid email or password.")
			return
		}
		h.renderer.Error(w, http.StatusInternalServerError, "something went wrong, please try again")
		return
	}

	auth.SetSessionCookie(w, h.sessionCookieName, token, h.sessionTTL, h.cookies)

	if next == "" {
		next = h.dashboardPath
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := auth.GetUserFromContext(r); claims != nil {
		// Best effort; the cookie is gone either way
		_ = h.sessions.Clear(r.Context(), claims.SessionID())
	}
	auth.ClearSessionCookie(w, h.sessionCookieName, h.cookies)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) renderLoginError(w http.ResponseWriter, status int, email, next, message string) {
	h.renderer.HTML(w, status, "login.html", map[string]any{
		"Email": email,
		"Next":  next,
		"Error": message,
	})
}

// safeNext keeps post-login redirects on this origin. Anything that is not a
// local absolute path is dropped.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}
