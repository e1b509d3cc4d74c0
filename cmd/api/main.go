package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tobyshaw/otpgate/internal/auth"
	"github.com/tobyshaw/otpgate/internal/background"
	"github.com/tobyshaw/otpgate/internal/config"
	"github.com/tobyshaw/otpgate/internal/database"
	"github.com/tobyshaw/otpgate/internal/gate"
	"github.com/tobyshaw/otpgate/internal/handlers"
	middlewareCustom "github.com/tobyshaw/otpgate/internal/middleware"
	"github.com/tobyshaw/otpgate/internal/models"
	"github.com/tobyshaw/otpgate/internal/render"
	"github.com/tobyshaw/otpgate/internal/repositories"
	"github.com/tobyshaw/otpgate/internal/routes"
	"github.com/tobyshaw/otpgate/internal/services"
	"github.com/tobyshaw/otpgate/internal/session"
	pkgauth "github.com/tobyshaw/otpgate/pkg/auth"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db.Pool)
	verificationRepo := repositories.NewOTPVerificationRepository(db.Pool)
	deviceRepo := repositories.NewTrustedDeviceRepository(db.Pool)

	// Session store
	store, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}
	sessionManager := session.NewManager(store, cfg.Session.TTL)

	// Crypto
	cipher, err := auth.NewSecretCipher(cfg.OTP.SecretEncKey)
	if err != nil {
		logger.Error("failed to initialize secret cipher", slog.Any("error", err))
		os.Exit(1)
	}
	totpManager := auth.NewTOTPManager(cfg.OTP.Issuer)
	tokenManager := auth.NewTokenManager(cfg.Session.Secret, cfg.Session.TTL)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES alerts for new trusted devices, optional
	var emailService services.EmailService
	if cfg.Email.Enabled {
		ses, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = ses
	}

	// Initialize services
	deviceService := services.NewDeviceService(deviceRepo, emailService, auditLogger, logger, cfg.OTP.TrustWindow)
	enrollmentService := services.NewEnrollmentService(verificationRepo, cipher, totpManager, auditLogger, logger)
	verificationService := services.NewVerificationService(verificationRepo, cipher, totpManager, sessionManager, deviceService, auditLogger, logger)
	authService := services.NewAuthService(userRepo, tokenManager, logger)

	// Templates
	renderer, err := render.New(logger)
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	// The gate protects everything under the admin prefix
	gateConfig := gate.Config{
		AdminPrefix:     cfg.OTP.AdminPrefix,
		SetupPath:       cfg.OTP.AdminPrefix + "mfa/setup",
		VerifyPath:      cfg.OTP.AdminPrefix + "mfa/verify",
		ForceEnrollment: cfg.OTP.ForceEnrollment,
	}
	accessGate := gate.New(verificationRepo, deviceService, sessionManager, gateConfig)

	cookieConfig := auth.CookieConfig{Secure: cfg.Server.Env == "production"}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sessionManager, renderer, cookieConfig, cfg.Session.CookieName, cfg.Session.TTL, cfg.OTP.AdminPrefix)
	mfaHandler := handlers.NewMFAHandler(enrollmentService, verificationService, renderer, cookieConfig, handlers.MFAConfig{
		SetupPath:        gateConfig.SetupPath,
		VerifyPath:       gateConfig.VerifyPath,
		DashboardPath:    cfg.OTP.AdminPrefix,
		DeviceCookieName: cfg.OTP.DeviceCookieName,
		TrustDays:        int(cfg.OTP.TrustWindow.Hours() / 24),
	})
	adminHandler := handlers.NewAdminHandler(renderer)

	// Bootstrap first staff user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(auth.SessionContext(tokenManager, cfg.Session.CookieName))

	// Register routes
	routes.RegisterRoutes(router, authHandler, mfaHandler, adminHandler, accessGate, gateConfig, cfg.OTP.DeviceCookieName, auditLogger, logger)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start expired-device reaper
	reaper := background.NewDeviceReaper(deviceService, logger, cfg.OTP.CleanupInterval)
	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()

	go reaper.Start(reaperCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	reaperCancel()
	reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newSessionStore picks the backend named in SESSION_STORE. Redis survives
// restarts and serves multiple replicas; memory is for development.
func newSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	switch cfg.Session.Store {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(ctx, cfg.Session.RedisAddr, cfg.Session.RedisDB)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis session store", slog.String("addr", cfg.Session.RedisAddr))
		return store, nil
	case "memory":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// ensureAdminUser creates the first staff user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		IsStaff:      true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
