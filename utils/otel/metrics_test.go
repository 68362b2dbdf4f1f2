package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		Metrics = nil
	})

	require.NoError(t, InitMetrics("test"))
	return reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string, attr attribute.KeyValue) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if v, found := dp.Attributes.Value(attr.Key); found && v.AsString() == attr.Value.AsString() {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestRecordLogin(t *testing.T) {
	reader := setupTestMeter(t)
	ctx := context.Background()

	RecordLogin(ctx, OutcomeSuccess)
	RecordLogin(ctx, OutcomeSuccess)
	RecordLogin(ctx, OutcomeRejected)

	assert.Equal(t, int64(2), counterValue(t, reader, "session_relay_login_attempts_total", attribute.String("outcome", OutcomeSuccess)))
	assert.Equal(t, int64(1), counterValue(t, reader, "session_relay_login_attempts_total", attribute.String("outcome", OutcomeRejected)))
}

func TestRecordSessionResolvedAndUpstreamFailure(t *testing.T) {
	reader := setupTestMeter(t)
	ctx := context.Background()

	RecordSessionResolved(ctx, OutcomeSuccess)
	RecordUpstreamFailure(ctx, "/userdetails")

	assert.Equal(t, int64(1), counterValue(t, reader, "session_relay_sessions_resolved_total", attribute.String("outcome", OutcomeSuccess)))
	assert.Equal(t, int64(1), counterValue(t, reader, "session_relay_upstream_failures_total", attribute.String("route", "/userdetails")))
}

func TestRecordHelpers_NoopWithoutInit(t *testing.T) {
	Metrics = nil
	assert.NotPanics(t, func() {
		RecordLogin(context.Background(), OutcomeSuccess)
		RecordSessionResolved(context.Background(), OutcomeError)
		RecordUpstreamFailure(context.Background(), "/login")
	})
}
