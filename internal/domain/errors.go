package domain

import "errors"

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionIDCollision = errors.New("session id already in use")
)

// Request errors.
var (
	ErrMalformedRequest = errors.New("malformed request")
)

// Token errors.
var (
	ErrTokenGeneration   = errors.New("token generation failed")
	ErrBackendSecretWeak = errors.New("backend token secret too weak")
)

// External service errors.
var (
	ErrUpstreamUnreachable = errors.New("identity service unreachable")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// IsUnauthenticated reports whether err means the caller has no valid session.
// Not-found and expired collapse to the same outcome for clients.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired)
}
