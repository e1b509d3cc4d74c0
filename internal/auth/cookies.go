package auth

import (
	"net/http"
	"time"
)

// CookieConfig holds cookie attributes shared by the session and
// trusted-device cookies
type CookieConfig struct {
	Secure bool // HTTPS only; on outside development
}

// SetSessionCookie sets the signed session token in an httpOnly cookie
func SetSessionCookie(w http.ResponseWriter, name, token string, ttl time.Duration, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true, // prevents JavaScript access
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie deletes the session cookie
func ClearSessionCookie(w http.ResponseWriter, name string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetDeviceTokenCookie sets the trusted-device bearer token in a persistent
// httpOnly cookie lasting the full trust window
func SetDeviceTokenCookie(w http.ResponseWriter, name, token string, expiresAt time.Time, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetCookie returns a cookie value by name, or "" when absent. A missing
// cookie is not an error at this layer; the gate treats it as no trust.
func GetCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
