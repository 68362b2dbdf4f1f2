package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"session-relay/internal/domain"
)

// ValidationResult is what the library-service gateway needs to authorize a call.
type ValidationResult struct {
	Identity     *domain.Identity
	BackendToken string
}

// ValidateSession resolves a session and signs a backend token for it.
type ValidateSession struct {
	resolver *ResolveSession
	token    domain.TokenIssuer
	logger   *slog.Logger
}

// NewValidateSession creates a new ValidateSession usecase. A nil issuer
// disables backend tokens.
func NewValidateSession(r *ResolveSession, t domain.TokenIssuer, l *slog.Logger) *ValidateSession {
	return &ValidateSession{resolver: r, token: t, logger: l}
}

// Execute validates the session identified by sessionID.
func (uc *ValidateSession) Execute(ctx context.Context, sessionID string) (*ValidationResult, error) {
	identity, err := uc.resolver.Execute(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Identity: identity}
	if uc.token == nil {
		return result, nil
	}

	backendToken, err := uc.token.IssueBackendToken(identity, sessionID)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to issue backend token", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}
	result.BackendToken = backendToken
	return result, nil
}
