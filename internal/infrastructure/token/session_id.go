package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"session-relay/internal/domain"
)

// sessionIDBytes gives 256 bits of entropy per session ID.
const sessionIDBytes = 32

// RandomSessionIDGenerator mints session IDs from a cryptographically secure source.
// Implements domain.SessionIDGenerator.
type RandomSessionIDGenerator struct {
	source io.Reader
}

// NewRandomSessionIDGenerator creates a generator reading from crypto/rand.
func NewRandomSessionIDGenerator() *RandomSessionIDGenerator {
	return &RandomSessionIDGenerator{source: rand.Reader}
}

// NewSessionID returns a base64url encoded random token.
func (g *RandomSessionIDGenerator) NewSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
