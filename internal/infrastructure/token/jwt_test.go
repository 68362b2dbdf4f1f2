package token

import (
	"testing"
	"time"

	"session-relay/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-valid-backend-token-secret-32-chars-long"

func testIssuer(ttl time.Duration) *JWTIssuer {
	return NewJWTIssuer(JWTConfig{
		Secret:   testSecret,
		Issuer:   "identity-service",
		Audience: "library-service",
		TTL:      ttl,
	})
}

func TestJWTIssuer_IssueBackendToken(t *testing.T) {
	identity := &domain.Identity{
		ID:    "user-123",
		Email: "admin@example.com",
		Role:  "admin",
	}

	tokenStr, err := testIssuer(5*time.Minute).IssueBackendToken(identity, "session-abc")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)

	parsed, err := jwt.ParseWithClaims(tokenStr, &backendClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	claims := parsed.Claims.(*backendClaims)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "ADMINISTRATOR", claims.Role)
	assert.Equal(t, "session-abc", claims.Sid)
	assert.Equal(t, "identity-service", claims.Issuer)
	assert.Contains(t, claims.Audience, "library-service")
}

func TestJWTIssuer_ExpiredToken(t *testing.T) {
	identity := &domain.Identity{ID: "user-123", Email: "test@example.com"}

	tokenStr, err := testIssuer(-1*time.Minute).IssueBackendToken(identity, "session-abc")
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, &backendClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	assert.Error(t, err)
}

func TestJWTIssuer_InvalidSignature(t *testing.T) {
	identity := &domain.Identity{ID: "user-123", Email: "test@example.com"}

	tokenStr, err := testIssuer(5*time.Minute).IssueBackendToken(identity, "session-abc")
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, &backendClaims{}, func(token *jwt.Token) (any, error) {
		return []byte("wrong-secret-that-should-fail-validation"), nil
	})
	assert.Error(t, err)
}

func TestJWTIssuer_WeakSecret(t *testing.T) {
	issuer := NewJWTIssuer(JWTConfig{Secret: "short", TTL: time.Minute})

	tokenStr, err := issuer.IssueBackendToken(&domain.Identity{ID: "u"}, "s")
	assert.Empty(t, tokenStr)
	assert.ErrorIs(t, err, domain.ErrBackendSecretWeak)
}
