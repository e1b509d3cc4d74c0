package routes

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/gate"
	"github.com/tobyshaw/otpgate/internal/handlers"
	"github.com/tobyshaw/otpgate/internal/middleware"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// RegisterRoutes registers all application routes. The gate middleware wraps
// the whole admin subtree, including the setup and verify pages; the gate's
// own path exemptions keep those reachable.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	mfaHandler *handlers.MFAHandler,
	adminHandler *handlers.AdminHandler,
	g *gate.Gate,
	gateConfig gate.Config,
	deviceCookieName string,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
) {
	loginLimit := middleware.DefaultLoginRateLimit()
	otpLimit := middleware.DefaultOTPRateLimit()

	// Public routes
	router.Get("/login", authHandler.LoginPage)
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/login", authHandler.Login)
	router.Post("/logout", authHandler.Logout)

	// Protected admin subtree
	adminPrefix := strings.TrimSuffix(gateConfig.AdminPrefix, "/")
	router.Route(adminPrefix, func(r chi.Router) {
		r.Use(gate.Middleware(g, deviceCookieName, audit, logger))
		r.Use(auth.RequireLogin("/login"))

		r.Get("/", adminHandler.Dashboard)

		r.Get("/mfa/setup", mfaHandler.SetupPage)
		r.With(middleware.RateLimitByIP(otpLimit)).Post("/mfa/setup", mfaHandler.Setup)
		r.Get("/mfa/verify", mfaHandler.VerifyPage)
		r.With(middleware.RateLimitByIP(otpLimit)).Post("/mfa/verify", mfaHandler.Verify)
	})

	// Root redirects into the admin
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, gateConfig.AdminPrefix, http.StatusFound)
	})
}
