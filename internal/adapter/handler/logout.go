package handler

import (
	"log/slog"
	"net/http"

	"session-relay/internal/usecase"

	"github.com/labstack/echo/v4"
)

// LogoutHandler handles POST /users/logout.
type LogoutHandler struct {
	uc         *usecase.Logout
	cookieName string
}

// NewLogoutHandler creates a new logout handler.
func NewLogoutHandler(uc *usecase.Logout, cookieName string) *LogoutHandler {
	return &LogoutHandler{uc: uc, cookieName: cookieName}
}

// Handle ends the session and clears the cookie. The client is logged out
// even when the store could not be reached.
func (h *LogoutHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := h.uc.Execute(ctx, sessionID(c, h.cookieName))
	if err != nil {
		slog.WarnContext(ctx, "session removal failed during logout", "error", err)
	}

	c.SetCookie(toHTTPCookie(cookie))
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}
