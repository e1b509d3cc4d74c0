package auth

import (
	"context"
	"net/http"
	"net/url"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing session claims in context
	UserContextKey contextKey = "user"
)

// SessionContext validates the session cookie and injects claims into the
// request context. It never rejects: anonymous requests pass through with no
// claims, and downstream middleware decides what requires a login.
func SessionContext(tm *TokenManager, cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := GetCookie(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Validate(token)
			if err != nil {
				// Expired or tampered cookie; continue as anonymous
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin redirects anonymous requests to the login page, preserving the
// original path in the next parameter
func RequireLogin(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserFromContext(r) == nil {
				http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts session claims from the request context
func GetUserFromContext(r *http.Request) *SessionClaims {
	claims, ok := r.Context().Value(UserContextKey).(*SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
