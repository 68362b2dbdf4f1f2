package handler

import (
	"net/http"

	"session-relay/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Identity headers consumed by the library-service gateway.
const (
	HeaderUserID       = "X-User-Id"
	HeaderUserEmail    = "X-User-Email"
	HeaderUserRole     = "X-User-Role"
	HeaderBackendToken = "X-Backend-Token"
)

// ValidateHandler handles /validate for nginx auth_request.
type ValidateHandler struct {
	uc         *usecase.ValidateSession
	cookieName string
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(uc *usecase.ValidateSession, cookieName string) *ValidateHandler {
	return &ValidateHandler{uc: uc, cookieName: cookieName}
}

// Handle processes the /validate endpoint.
func (h *ValidateHandler) Handle(c echo.Context) error {
	result, err := h.uc.Execute(c.Request().Context(), sessionID(c, h.cookieName))
	if err != nil {
		return mapDomainError(err)
	}

	header := c.Response().Header()
	header.Set(HeaderUserID, result.Identity.ID)
	header.Set(HeaderUserEmail, result.Identity.Email)
	header.Set(HeaderUserRole, result.Identity.Role.String())
	if result.BackendToken != "" {
		header.Set(HeaderBackendToken, result.BackendToken)
	}
	return c.NoContent(http.StatusOK)
}
