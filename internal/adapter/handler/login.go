package handler

import (
	"errors"
	"net/http"

	"session-relay/internal/domain"
	"session-relay/internal/usecase"
	"session-relay/utils/logger"
	"session-relay/utils/otel"

	"github.com/labstack/echo/v4"
)

// loginRequest accepts the JSON body of the UI and the form body of plain
// HTML forms, where the email arrives as "username".
type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginCredentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

type loginResponse struct {
	Message string          `json:"message"`
	User    domain.Identity `json:"user"`
}

// LoginHandler handles POST /users/login.
type LoginHandler struct {
	uc        *usecase.Login
	validator echo.Validator
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(uc *usecase.Login, v echo.Validator) *LoginHandler {
	return &LoginHandler{uc: uc, validator: v}
}

// Handle verifies credentials and sets the session cookie.
func (h *LoginHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		otel.RecordLogin(ctx, otel.OutcomeRejected)
		return mapDomainError(domain.ErrMalformedRequest)
	}

	creds := loginCredentials{Email: req.Email, Password: req.Password}
	if creds.Email == "" {
		creds.Email = req.Username
	}
	if err := h.validator.Validate(creds); err != nil {
		otel.RecordLogin(ctx, otel.OutcomeRejected)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.uc.Execute(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			otel.RecordLogin(ctx, otel.OutcomeRejected)
		} else {
			otel.RecordLogin(ctx, otel.OutcomeError)
		}
		return mapDomainError(err)
	}
	otel.RecordLogin(ctx, otel.OutcomeSuccess)

	ctx = logger.WithSessionID(logger.WithUserID(ctx, result.Session.Identity.ID), result.Session.ID)
	logger.GlobalContext.WithContext(ctx).InfoContext(ctx, "login succeeded", "remote_addr", c.RealIP())

	c.SetCookie(toHTTPCookie(result.Cookie))
	return c.JSON(http.StatusOK, loginResponse{Message: "ok", User: result.Session.Identity})
}
