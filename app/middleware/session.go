package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName carries the opaque per-client session identifier that
	// scopes one-time confirmation markers.
	SessionCookieName = "pw_session"

	// SessionContextKey is where the resolved session ID lands on the echo
	// context.
	SessionContextKey = "session_id"

	sessionCookieMaxAge = 14 * 24 * time.Hour
)

// Session assigns a session cookie to clients that lack one and exposes the
// session ID to handlers.
func Session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			cookie = &http.Cookie{
				Name:     SessionCookieName,
				Value:    uuid.New().String(),
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			}
			c.SetCookie(cookie)
		}

		c.Set(SessionContextKey, cookie.Value)
		return next(c)
	}
}
