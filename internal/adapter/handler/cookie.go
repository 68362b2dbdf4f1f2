package handler

import (
	"net/http"

	"session-relay/internal/domain"

	"github.com/labstack/echo/v4"
)

func toHTTPCookie(c domain.Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		MaxAge:   c.MaxAge,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: toHTTPSameSite(c.SameSite),
	}
}

func toHTTPSameSite(s domain.SameSite) http.SameSite {
	switch s {
	case domain.SameSiteStrict:
		return http.SameSiteStrictMode
	case domain.SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// sessionID reads the session cookie; a missing cookie yields "".
func sessionID(c echo.Context, cookieName string) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
