package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// InternalAuthHeader carries the shared secret from the library-service gateway.
const InternalAuthHeader = "X-Internal-Auth"

// InternalAuth restricts a route to callers presenting the shared secret.
// An empty secret leaves the route open.
func InternalAuth(sharedSecret string) echo.MiddlewareFunc {
	if sharedSecret == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	secret := []byte(sharedSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(InternalAuthHeader))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing internal auth header")
			}
			if subtle.ConstantTimeCompare(provided, secret) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid internal auth")
			}
			return next(c)
		}
	}
}
