package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	RequestIDKey     ContextKey = "request_id"
	UserIDKey        ContextKey = "user_id"
	SessionPrefixKey ContextKey = "session_prefix"
)

// sessionPrefixLen is how much of a session id may appear in logs.
const sessionPrefixLen = 8

// GlobalContext is set by Init. A nil ContextLogger falls back to slog.Default.
var GlobalContext *ContextLogger

// ContextLogger enriches log records with request-scoped values carried in a context.
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(l *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: l}
}

// WithContext returns a logger carrying whichever request values are present in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if cl != nil && cl.logger != nil {
		l = cl.logger
	}

	attrs := requestAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return l.With(args...)
}

// LogDuration records how long an operation took, at debug level.
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, durationMs int64) {
	cl.WithContext(ctx).DebugContext(ctx, "operation completed",
		"operation", operation,
		"duration_ms", durationMs)
}

// LogError records a failed operation.
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).ErrorContext(ctx, "operation failed",
		"operation", operation,
		"error", err)
}

// requestAttrs lists the request-scoped values present in ctx, in key order.
func requestAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []ContextKey{RequestIDKey, UserIDKey, SessionPrefixKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithSessionID stores only a short prefix of sessionID; full ids never reach logs.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionPrefixKey, SessionPrefix(sessionID))
}

// SessionPrefix truncates a session id to a loggable prefix.
func SessionPrefix(sessionID string) string {
	if len(sessionID) > sessionPrefixLen {
		return sessionID[:sessionPrefixLen]
	}
	return sessionID
}
