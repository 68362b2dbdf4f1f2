package usecase

import (
	"context"
	"log/slog"
	"time"

	"session-relay/internal/domain"
)

// ResolveSession maps a session ID back to the identity that created it.
type ResolveSession struct {
	store  domain.SessionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewResolveSession creates a new ResolveSession usecase.
func NewResolveSession(s domain.SessionStore, l *slog.Logger) *ResolveSession {
	return &ResolveSession{store: s, logger: l, now: time.Now}
}

// Execute returns the identity for sessionID. A session past its expiry is
// evicted and reported as domain.ErrSessionExpired. Successful lookups do not
// modify the store.
func (uc *ResolveSession) Execute(ctx context.Context, sessionID string) (*domain.Identity, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	sess, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.IsExpired(uc.now()) {
		if err := uc.store.Delete(ctx, sessionID); err != nil {
			uc.logger.ErrorContext(ctx, "failed to evict expired session", "error", err)
		}
		return nil, domain.ErrSessionExpired
	}

	identity := sess.Identity
	return &identity, nil
}
