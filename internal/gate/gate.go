// Package gate decides, per request, whether a user must complete
// one-time-password verification before reaching the protected admin area.
package gate

import (
	"context"
	"strings"
)

// Decision is the outcome of evaluating one request against the gate.
type Decision int

const (
	// NotApplicable means the request is outside the gate's scope and passes
	// through untouched.
	NotApplicable Decision = iota
	// Allowed means the second factor is satisfied for this request.
	Allowed
	// NeedsSetup redirects the user to the enrollment flow.
	NeedsSetup
	// NeedsVerify redirects the user to the verification challenge.
	NeedsVerify
	// OnVerifyPath passes the request through so the verification and setup
	// endpoints themselves never redirect into a loop.
	OnVerifyPath
)

func (d Decision) String() string {
	switch d {
	case NotApplicable:
		return "not_applicable"
	case Allowed:
		return "allowed"
	case NeedsSetup:
		return "needs_setup"
	case NeedsVerify:
		return "needs_verify"
	case OnVerifyPath:
		return "on_verify_path"
	default:
		return "unknown"
	}
}

// VerificationChecker reports whether a user has a confirmed TOTP enrollment
type VerificationChecker interface {
	ConfirmedExists(ctx context.Context, userID string) (bool, error)
}

// DeviceChecker reports whether a trusted-device token is active for a user
type DeviceChecker interface {
	IsActive(ctx context.Context, userID, token string) (bool, error)
}

// SessionFlags reports whether a session already completed verification
type SessionFlags interface {
	MFAVerified(ctx context.Context, sid string) (bool, error)
}

// Config holds the gate's policy knobs
type Config struct {
	// AdminPrefix is the protected path prefix, with a trailing slash.
	AdminPrefix string
	// SetupPath and VerifyPath are the enrollment and challenge endpoints,
	// mounted under the protected prefix.
	SetupPath  string
	VerifyPath string
	// ForceEnrollment redirects users without a confirmed secret to setup;
	// when off, MFA stays optional until the user opts in.
	ForceEnrollment bool
}

// Request is the slice of an inbound request the decision depends on.
// Extracting it keeps Evaluate free of http.Request plumbing.
type Request struct {
	Path          string
	Authenticated bool
	UserID        string
	SessionID     string
	// DeviceToken is the raw trusted-device cookie value, "" when absent.
	// A garbled token simply fails the registry lookup; it is never an error.
	DeviceToken string
}

// Gate composes the secret store, device registry, and session flags into
// the per-request decision.
type Gate struct {
	verifications VerificationChecker
	devices       DeviceChecker
	sessions      SessionFlags
	cfg           Config
}

// New creates a gate. All collaborators are read-only here; mutation happens
// in the verification flow.
func New(verifications VerificationChecker, devices DeviceChecker, sessions SessionFlags, cfg Config) *Gate {
	return &Gate{
		verifications: verifications,
		devices:       devices,
		sessions:      sessions,
		cfg:           cfg,
	}
}

// Evaluate runs the decision chain in order, first match wins. Any storage
// error aborts the chain so the caller fails closed.
func (g *Gate) Evaluate(ctx context.Context, req Request) (Decision, error) {
	// 1. Only the admin area and authenticated users are in scope. The bare
	// prefix without its trailing slash still counts as inside.
	inScope := strings.HasPrefix(req.Path, g.cfg.AdminPrefix) ||
		req.Path == strings.TrimSuffix(g.cfg.AdminPrefix, "/")
	if !inScope || !req.Authenticated {
		return NotApplicable, nil
	}

	// 2. Session already verified
	verified, err := g.sessions.MFAVerified(ctx, req.SessionID)
	if err != nil {
		return NeedsVerify, err
	}
	if verified {
		return Allowed, nil
	}

	// 3. Active trusted device. Deliberately does not set the session flag:
	// the registry check is cheap and re-run on every request, and the flag
	// is reserved for explicit verification.
	if req.DeviceToken != "" {
		active, err := g.devices.IsActive(ctx, req.UserID, req.DeviceToken)
		if err != nil {
			return NeedsVerify, err
		}
		if active {
			return Allowed, nil
		}
	}

	// 4. No confirmed enrollment yet
	confirmed, err := g.verifications.ConfirmedExists(ctx, req.UserID)
	if err != nil {
		return NeedsVerify, err
	}
	if !confirmed {
		if !g.cfg.ForceEnrollment {
			return Allowed, nil
		}
		// The setup endpoint itself must render, not redirect to itself
		if req.Path == g.cfg.SetupPath {
			return OnVerifyPath, nil
		}
		return NeedsSetup, nil
	}

	// 5. Verification required; the challenge endpoint passes through to
	// avoid a redirect loop
	if req.Path == g.cfg.VerifyPath {
		return OnVerifyPath, nil
	}
	return NeedsVerify, nil
}
