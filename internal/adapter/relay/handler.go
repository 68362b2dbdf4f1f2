package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"session-relay/internal/adapter/gateway"
	"session-relay/internal/domain"
	"session-relay/utils/logger"
	"session-relay/utils/otel"

	"github.com/labstack/echo/v4"
)

// maxLoginBody caps the login body read from the browser.
const maxLoginBody = 64 << 10

// Upstream is the identity service as seen by the relay.
type Upstream interface {
	Login(ctx context.Context, contentType string, body io.Reader) (*gateway.Forwarded, error)
	UserDetails(ctx context.Context, cookie string) (*gateway.Forwarded, error)
	Logout(ctx context.Context, cookie string) (*gateway.Forwarded, error)
	Ping(ctx context.Context) (int, error)
}

// Handler exposes the browser-facing relay endpoints. It keeps no state.
type Handler struct {
	upstream Upstream
	log      *logger.ContextLogger
}

// NewHandler creates a relay handler.
func NewHandler(u Upstream, l *slog.Logger) *Handler {
	return &Handler{upstream: u, log: logger.NewContextLogger(l)}
}

type pingResponse struct {
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Register mounts the relay routes at the root and under /api/auth, the
// paths the UI used before the relay was split out.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	for _, g := range []*echo.Group{e.Group(""), e.Group("/api/auth")} {
		g.POST("/login", h.Login)
		g.GET("/userdetails", h.UserDetails)
		g.POST("/logout", h.Logout)
		g.GET("/ping", h.Ping)
	}
}

// Login forwards the credentials and every Set-Cookie of the answer.
func (h *Handler) Login(c echo.Context) error {
	req := c.Request()
	body := http.MaxBytesReader(c.Response(), req.Body, maxLoginBody)

	start := time.Now()
	fwd, err := h.upstream.Login(req.Context(), req.Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return h.upstreamError(c, "/login", err)
	}
	h.forwarded(c, "/login", start)
	copySetCookies(c, fwd)
	return relayBody(c, fwd)
}

// UserDetails forwards the browser cookie. Set-Cookie is never relayed here.
func (h *Handler) UserDetails(c echo.Context) error {
	req := c.Request()
	start := time.Now()
	fwd, err := h.upstream.UserDetails(req.Context(), req.Header.Get("Cookie"))
	if err != nil {
		return h.upstreamError(c, "/userdetails", err)
	}
	h.forwarded(c, "/userdetails", start)
	return relayBody(c, fwd)
}

// Logout forwards the browser cookie and relays the expiring Set-Cookie.
func (h *Handler) Logout(c echo.Context) error {
	req := c.Request()
	start := time.Now()
	fwd, err := h.upstream.Logout(req.Context(), req.Header.Get("Cookie"))
	if err != nil {
		return h.upstreamError(c, "/logout", err)
	}
	h.forwarded(c, "/logout", start)
	copySetCookies(c, fwd)
	return relayBody(c, fwd)
}

// Ping reports identity service reachability. Only a request that cannot be
// built answers with a failure status.
func (h *Handler) Ping(c echo.Context) error {
	ctx := c.Request().Context()
	status, err := h.upstream.Ping(ctx)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, pingResponse{Reachable: true, Status: status})
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		h.log.WithContext(ctx).WarnContext(ctx, "identity service unreachable", "error", err)
		otel.RecordUpstreamFailure(ctx, "/ping")
		return c.JSON(http.StatusOK, pingResponse{Reachable: false, Error: "upstream unreachable"})
	default:
		h.log.LogError(ctx, "relay /ping", err)
		return c.JSON(http.StatusBadGateway, pingResponse{Reachable: false})
	}
}

// Health is the relay's own liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) upstreamError(c echo.Context, route string, err error) error {
	ctx := c.Request().Context()

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	h.log.LogError(ctx, "relay "+route, err)
	otel.RecordUpstreamFailure(ctx, route)
	return echo.NewHTTPError(http.StatusBadGateway, "upstream unreachable")
}

func (h *Handler) forwarded(c echo.Context, route string, start time.Time) {
	h.log.LogDuration(c.Request().Context(), "relay "+route, time.Since(start).Milliseconds())
}

func copySetCookies(c echo.Context, fwd *gateway.Forwarded) {
	header := c.Response().Header()
	for _, v := range fwd.Header.Values("Set-Cookie") {
		header.Add("Set-Cookie", v)
	}
}

// relayBody writes the upstream status and body. Location is kept on
// redirects so the browser can follow them.
func relayBody(c echo.Context, fwd *gateway.Forwarded) error {
	if fwd.Status >= 300 && fwd.Status < 400 {
		if location := fwd.Header.Get(echo.HeaderLocation); location != "" {
			c.Response().Header().Set(echo.HeaderLocation, location)
		}
	}
	contentType := fwd.Header.Get("Content-Type")
	if contentType == "" {
		contentType = echo.MIMETextPlainCharsetUTF8
	}
	return c.Blob(fwd.Status, contentType, fwd.Body)
}
