// Package session stores per-session state server side, keyed by the session
// ID carried in the signed session cookie. The gate only ever reads one key:
// the MFA-satisfied flag.
package session

import (
	"context"
	"time"
)

// MFAVerifiedKey marks a session that completed one-time-password
// verification.
const MFAVerifiedKey = "mfa-verified"

// Store is the minimal key-value contract the gate needs from a session
// backend.
type Store interface {
	// Get returns the value for key in session sid; ok is false when absent.
	Get(ctx context.Context, sid, key string) (value string, ok bool, err error)
	// Set writes key=value in session sid, expiring the session after ttl.
	Set(ctx context.Context, sid, key, value string, ttl time.Duration) error
	// Delete drops the whole session.
	Delete(ctx context.Context, sid string) error
}

// Manager wraps a Store with the verification-flag semantics
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a manager whose flags expire with the session TTL
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// MFAVerified reports whether the session has completed verification.
// Errors propagate so callers fail closed.
func (m *Manager) MFAVerified(ctx context.Context, sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}

	value, ok, err := m.store.Get(ctx, sid, MFAVerifiedKey)
	if err != nil {
		return false, err
	}

	return ok && value == "1", nil
}

// SetMFAVerified marks the session as verified
func (m *Manager) SetMFAVerified(ctx context.Context, sid string) error {
	return m.store.Set(ctx, sid, MFAVerifiedKey, "1", m.ttl)
}

// Clear drops all state for a session, used at logout
func (m *Manager) Clear(ctx context.Context, sid string) error {
	return m.store.Delete(ctx, sid)
}
