package usecase

import (
	"context"
	"log/slog"

	"session-relay/internal/domain"
)

// Logout invalidates a session.
type Logout struct {
	store   domain.SessionStore
	cookies domain.CookiePolicy
	logger  *slog.Logger
}

// NewLogout creates a new Logout usecase.
func NewLogout(s domain.SessionStore, cookies domain.CookiePolicy, l *slog.Logger) *Logout {
	return &Logout{store: s, cookies: cookies, logger: l}
}

// Execute removes sessionID from the store and returns the cookie that clears
// it in the browser. Unknown or empty IDs are not an error. The clearing
// cookie is returned even when the store fails.
func (uc *Logout) Execute(ctx context.Context, sessionID string) (domain.Cookie, error) {
	cookie := uc.cookies.ExpiredCookie()
	if sessionID == "" {
		return cookie, nil
	}
	if err := uc.store.Delete(ctx, sessionID); err != nil {
		uc.logger.ErrorContext(ctx, "failed to delete session", "error", err)
		return cookie, err
	}
	return cookie, nil
}
