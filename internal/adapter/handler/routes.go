package handler

import "github.com/labstack/echo/v4"

// Handlers groups the identity service endpoints.
type Handlers struct {
	Login       *LoginHandler
	UserDetails *UserDetailsHandler
	Logout      *LogoutHandler
	Validate    *ValidateHandler
	Health      *HealthHandler
}

// Register mounts the identity service routes. loginGuard and validateGuard
// wrap the login and validate routes respectively and may be nil.
func (h Handlers) Register(e *echo.Echo, loginGuard, validateGuard echo.MiddlewareFunc) {
	e.GET("/", h.Health.Banner)
	e.GET("/health", h.Health.Handle)

	users := e.Group("/users")
	users.POST("/login", h.Login.Handle, optional(loginGuard)...)
	users.GET("/userdetails", h.UserDetails.Handle)
	// The account page of the UI uses the hyphenated path.
	users.GET("/user-details", h.UserDetails.Handle)
	users.POST("/logout", h.Logout.Handle)

	e.GET("/validate", h.Validate.Handle, optional(validateGuard)...)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
