package domain

import "context"

// SessionStore is the server-side session registry. Only the Identity Service
// holds a reference to it.
type SessionStore interface {
	// Insert stores sess unless its ID is already present, in which case it
	// returns ErrSessionIDCollision.
	Insert(ctx context.Context, sess *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
}

// CredentialVerifier checks an email/password pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*Identity, error)
}

// SessionIDGenerator mints unpredictable session identifiers.
type SessionIDGenerator interface {
	NewSessionID() (string, error)
}

// TokenIssuer generates signed backend JWT tokens.
type TokenIssuer interface {
	IssueBackendToken(identity *Identity, sessionID string) (string, error)
}
