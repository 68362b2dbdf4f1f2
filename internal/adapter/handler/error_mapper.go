package handler

import (
	"errors"
	"net/http"

	"session-relay/internal/domain"

	"github.com/labstack/echo/v4"
)

// mapDomainError converts a domain error into an echo.HTTPError with a safe message.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

	case errors.Is(err, domain.ErrMalformedRequest):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")

	case errors.Is(err, domain.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")

	case errors.Is(err, domain.ErrTokenGeneration),
		errors.Is(err, domain.ErrBackendSecretWeak),
		errors.Is(err, domain.ErrSessionIDCollision):
		return echo.NewHTTPError(http.StatusInternalServerError, "could not establish session")

	case errors.Is(err, domain.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
