package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics is nil until InitMetrics runs; the Record helpers are no-ops then.
var Metrics *RelayMetrics

// RelayMetrics holds the metric instruments of both servers.
type RelayMetrics struct {
	LoginAttempts    metric.Int64Counter
	SessionsResolved metric.Int64Counter
	UpstreamFailures metric.Int64Counter
}

// InitMetrics creates the instruments from the global meter provider.
func InitMetrics(meterName string) error {
	meter := otel.Meter(meterName)

	loginAttempts, err := meter.Int64Counter("session_relay_login_attempts_total",
		metric.WithDescription("Login attempts by outcome"),
	)
	if err != nil {
		return err
	}

	sessionsResolved, err := meter.Int64Counter("session_relay_sessions_resolved_total",
		metric.WithDescription("Session resolutions by outcome"),
	)
	if err != nil {
		return err
	}

	upstreamFailures, err := meter.Int64Counter("session_relay_upstream_failures_total",
		metric.WithDescription("Relay calls that could not reach the identity service"),
	)
	if err != nil {
		return err
	}

	Metrics = &RelayMetrics{
		LoginAttempts:    loginAttempts,
		SessionsResolved: sessionsResolved,
		UpstreamFailures: upstreamFailures,
	}
	return nil
}

// RecordLogin counts one login attempt.
func RecordLogin(ctx context.Context, outcome string) {
	if Metrics == nil {
		return
	}
	Metrics.LoginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSessionResolved counts one session resolution.
func RecordSessionResolved(ctx context.Context, outcome string) {
	if Metrics == nil {
		return
	}
	Metrics.SessionsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordUpstreamFailure counts one failed relay call to route.
func RecordUpstreamFailure(ctx context.Context, route string) {
	if Metrics == nil {
		return
	}
	Metrics.UpstreamFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
