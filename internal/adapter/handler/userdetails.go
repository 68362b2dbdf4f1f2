package handler

import (
	"net/http"

	"session-relay/internal/usecase"
	"session-relay/utils/otel"

	"github.com/labstack/echo/v4"
)

// UserDetailsHandler handles GET /users/userdetails.
type UserDetailsHandler struct {
	uc         *usecase.ResolveSession
	cookieName string
}

// NewUserDetailsHandler creates a new user details handler.
func NewUserDetailsHandler(uc *usecase.ResolveSession, cookieName string) *UserDetailsHandler {
	return &UserDetailsHandler{uc: uc, cookieName: cookieName}
}

// Handle returns the identity bound to the session cookie.
func (h *UserDetailsHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := h.uc.Execute(ctx, sessionID(c, h.cookieName))
	if err != nil {
		otel.RecordSessionResolved(ctx, otel.OutcomeRejected)
		return mapDomainError(err)
	}
	otel.RecordSessionResolved(ctx, otel.OutcomeSuccess)

	return c.JSON(http.StatusOK, identity)
}
