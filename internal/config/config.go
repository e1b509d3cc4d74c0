package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Session  SessionConfig
	OTP      OTPConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Store      string // "memory" or "redis"
	RedisAddr  string
	RedisDB    int
}

// OTPConfig holds the enforcement gate's tunables.
type OTPConfig struct {
	// AdminPrefix is the path prefix the gate protects.
	AdminPrefix string
	// Issuer is the label shown in authenticator apps.
	Issuer string
	// SecretEncKey is the 32-byte AES-256 key sealing TOTP secrets at rest.
	SecretEncKey []byte
	// ForceEnrollment redirects users without a confirmed secret to setup.
	ForceEnrollment bool
	// TrustWindow is how long a trusted device skips re-verification.
	TrustWindow time.Duration
	// DeviceCookieName carries the trusted-device token.
	DeviceCookieName string
	// CleanupInterval drives the expired-device reaper.
	CleanupInterval time.Duration
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	encKey, err := parseSecretEncKey(getEnv("SECRET_ENC_KEY", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "otpgate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			Secret:     sessionSecret,
			TTL:        getEnvAsDuration("SESSION_TTL", 12*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "admin_session"),
			Store:      getEnv("SESSION_STORE", "memory"),
			RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
			RedisDB:    getEnvAsInt("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			AdminPrefix:      getEnv("ADMIN_PATH_PREFIX", "/admin/"),
			Issuer:           getEnv("ISSUER_NAME", "otpgate"),
			SecretEncKey:     encKey,
			ForceEnrollment:  getEnvAsBool("FORCE_ENROLLMENT", true),
			TrustWindow:      time.Duration(getEnvAsInt("TRUSTED_DEVICE_DAYS", 30)) * 24 * time.Hour,
			DeviceCookieName: getEnv("DEVICE_COOKIE_NAME", "trusted_device"),
			CleanupInterval:  getEnvAsDuration("DEVICE_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ALERTS_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if !strings.HasSuffix(cfg.OTP.AdminPrefix, "/") {
		cfg.OTP.AdminPrefix += "/"
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ALERTS_ENABLED is true")
	}

	return cfg, nil
}

// parseSecretEncKey decodes SECRET_ENC_KEY and enforces the AES-256 key size.
// Accepts a raw 32-byte string or base64 of 32 bytes.
func parseSecretEncKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("SECRET_ENC_KEY is required")
	}

	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded, nil
	}

	if len(raw) == 32 {
		return []byte(raw), nil
	}

	return nil, fmt.Errorf("SECRET_ENC_KEY must be 32 bytes (raw or base64-encoded), got %d", len(raw))
}

// validateSessionSecret enforces minimum strength for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires a 256-bit secret
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
