package logger

import (
	"context"
	"log/slog"
	"time"
)

// GateEvent records one access-gate decision for a protected request
type GateEvent struct {
	Decision string
	UserID   string
	Path     string
}

// VerificationEvent records a setup or verify attempt
type VerificationEvent struct {
	EventType     string // "setup" or "verify"
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// AuditLogger provides security audit logging
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogGateDecision logs the outcome of the access gate for a protected request
func (al *AuditLogger) LogGateDecision(event GateEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "gate"),
		slog.String("decision", event.Decision),
		slog.String("path", event.Path),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "gate_decision", attrs...)
}

// LogVerificationAttempt logs a setup or verify submission. Codes and tokens
// are never included.
func (al *AuditLogger) LogVerificationAttempt(event VerificationEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "otp"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "otp_attempt", attrs...)
}

// LogDeviceTrusted logs the registration of a new trusted device. Only the
// label is logged, never the token.
func (al *AuditLogger) LogDeviceTrusted(userID, deviceLabel string, expiresAt time.Time) {
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "device_trusted",
		slog.String("audit_type", "device"),
		slog.String("user_id", userID),
		slog.String("device_label", deviceLabel),
		slog.String("expires_at", expiresAt.UTC().Format(time.RFC3339)),
	)
}
