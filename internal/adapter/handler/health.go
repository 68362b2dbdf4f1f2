package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves liveness and the service banner.
type HealthHandler struct {
	service string
}

// NewHealthHandler creates a health handler reporting service as its name.
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// Handle processes the /health endpoint.
func (h *HealthHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Banner answers GET /, which the relay's ping probes.
func (h *HealthHandler) Banner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": h.service,
	})
}
