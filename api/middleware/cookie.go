package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// TokenCookieName is the http-only cookie carrying the session token.
const TokenCookieName = "token"

// CookieConfig controls the attributes of the token cookie.
type CookieConfig struct {
	Domain string
	Secure bool
}

// NewCookieConfig marks the cookie Secure in production.
func NewCookieConfig(app config.AppConfig, session config.SessionConfig) CookieConfig {
	return CookieConfig{Domain: session.CookieDomain, Secure: app.IsProd()}
}

// SetTokenCookie writes the token cookie expiring with its session.
func SetTokenCookie(w http.ResponseWriter, cfg CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie on the client.
func ClearTokenCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFromRequest prefers the cookie and falls back to a bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
