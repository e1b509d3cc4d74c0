package gate

import (
	"log/slog"
	"net/http"

	"github.com/tobyshaw/otpgate/internal/auth"
	pkglogger "github.com/tobyshaw/otpgate/pkg/logger"
)

// Middleware wires the gate into the HTTP stack. The device cookie name is
// passed in because cookie transport is outside the decision core.
func Middleware(g *Gate, deviceCookieName string, audit *pkglogger.AuditLogger, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := Request{
				Path:        r.URL.Path,
				DeviceToken: auth.GetCookie(r, deviceCookieName),
			}

			if claims := auth.GetUserFromContext(r); claims != nil {
				req.Authenticated = true
				req.UserID = claims.UserID
				req.SessionID = claims.SessionID()
			}

			decision, err := g.Evaluate(r.Context(), req)
			if err != nil {
				// Storage failure: never allow the request through
				logger.Error("gate evaluation failed",
					slog.String("path", req.Path),
					slog.Any("error", err))
				http.Error(w, "unable to verify second factor", http.StatusServiceUnavailable)
				return
			}

			if decision != NotApplicable {
				audit.LogGateDecision(pkglogger.GateEvent{
					Decision: decision.String(),
					UserID:   req.UserID,
					Path:     req.Path,
				})
			}

			switch decision {
			case NeedsSetup:
				http.Redirect(w, r, g.cfg.SetupPath, http.StatusFound)
			case NeedsVerify:
				http.Redirect(w, r, g.cfg.VerifyPath, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
