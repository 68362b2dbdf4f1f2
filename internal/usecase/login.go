package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"session-relay/internal/domain"
)

// maxSessionIDAttempts bounds retries when a freshly minted ID is already taken.
const maxSessionIDAttempts = 3

// LoginResult is a new session together with the cookie that carries it.
type LoginResult struct {
	Session *domain.Session
	Cookie  domain.Cookie
}

// Login verifies credentials and mints a session.
type Login struct {
	verifier domain.CredentialVerifier
	store    domain.SessionStore
	ids      domain.SessionIDGenerator
	cookies  domain.CookiePolicy
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewLogin creates a new Login usecase.
func NewLogin(
	v domain.CredentialVerifier,
	s domain.SessionStore,
	g domain.SessionIDGenerator,
	cookies domain.CookiePolicy,
	ttl time.Duration,
	l *slog.Logger,
) *Login {
	return &Login{verifier: v, store: s, ids: g, cookies: cookies, ttl: ttl, logger: l, now: time.Now}
}

// Execute verifies email/password and stores a new session for the identity.
// Failed verification returns domain.ErrInvalidCredentials and writes nothing.
func (uc *Login) Execute(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := uc.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			uc.logger.WarnContext(ctx, "login rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	for attempt := 1; attempt <= maxSessionIDAttempts; attempt++ {
		id, err := uc.ids.NewSessionID()
		if err != nil {
			uc.logger.ErrorContext(ctx, "failed to generate session id", "error", err)
			return nil, err
		}

		now := uc.now()
		sess := &domain.Session{
			ID:        id,
			Identity:  *identity,
			CreatedAt: now,
			ExpiresAt: now.Add(uc.ttl),
		}

		err = uc.store.Insert(ctx, sess)
		if err == nil {
			uc.logger.InfoContext(ctx, "session created",
				"user_id", identity.ID,
				"role", identity.Role,
				"expires_at", sess.ExpiresAt)
			return &LoginResult{Session: sess, Cookie: uc.cookies.SessionCookie(sess, now)}, nil
		}
		if !errors.Is(err, domain.ErrSessionIDCollision) {
			uc.logger.ErrorContext(ctx, "failed to store session", "error", err)
			return nil, err
		}
		uc.logger.WarnContext(ctx, "session id collision, regenerating", "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", domain.ErrSessionIDCollision, maxSessionIDAttempts)
}
