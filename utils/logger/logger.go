package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// Init installs the process-wide JSON logger tagged with serviceName. With
// enableOTel set, records are also bridged to the OTel log provider under a
// scope named after the service.
func Init(serviceName string, enableOTel bool) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	var handler slog.Handler = NewTraceContextHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	if enableOTel {
		bridge := NewBridgeHandler(global.GetLoggerProvider().Logger(serviceName), level)
		handler = fanout{handler, bridge}
	}

	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	GlobalContext = NewContextLogger(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BridgeHandler emits slog records as OTel log records. Request values found
// in the context (request id, user id, session prefix) are attached unless the
// record already carries them. Trace correlation is left to the SDK, which
// reads the span from the context passed to Emit.
type BridgeHandler struct {
	logger log.Logger
	level  slog.Leveler
	attrs  []log.KeyValue
	prefix string
}

// NewBridgeHandler emits through l, dropping records below level.
func NewBridgeHandler(l log.Logger, level slog.Leveler) *BridgeHandler {
	return &BridgeHandler{logger: l, level: level}
}

func (h *BridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *BridgeHandler) Handle(ctx context.Context, r slog.Record) error {
	var rec log.Record
	rec.SetTimestamp(r.Time)
	rec.SetObservedTimestamp(time.Now())
	rec.SetBody(log.StringValue(r.Message))
	rec.SetSeverity(severity(r.Level))
	rec.SetSeverityText(r.Level.String())

	seen := make(map[string]bool, len(h.attrs)+r.NumAttrs())
	for _, kv := range h.attrs {
		seen[kv.Key] = true
	}
	rec.AddAttributes(h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		if kv, ok := toKeyValue(h.prefix, a); ok {
			seen[kv.Key] = true
			rec.AddAttributes(kv)
		}
		return true
	})

	for _, a := range requestAttrs(ctx) {
		if !seen[a.Key] {
			rec.AddAttributes(log.String(a.Key, a.Value.String()))
		}
	}

	h.logger.Emit(ctx, rec)
	return nil
}

func (h *BridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]log.KeyValue(nil), h.attrs...)
	for _, a := range attrs {
		if kv, ok := toKeyValue(h.prefix, a); ok {
			next.attrs = append(next.attrs, kv)
		}
	}
	return &next
}

func (h *BridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func severity(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

// toKeyValue converts one slog attribute. Empty attributes are dropped, as
// slog handlers do.
func toKeyValue(prefix string, a slog.Attr) (log.KeyValue, bool) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return log.KeyValue{}, false
	}
	return log.KeyValue{Key: prefix + a.Key, Value: toValue(a.Value)}, true
}

func toValue(v slog.Value) log.Value {
	switch v.Kind() {
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindUint64:
		return log.Int64Value(int64(v.Uint64()))
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindDuration:
		return log.Int64Value(v.Duration().Milliseconds())
	case slog.KindTime:
		return log.StringValue(v.Time().Format(time.RFC3339Nano))
	case slog.KindGroup:
		group := v.Group()
		kvs := make([]log.KeyValue, 0, len(group))
		for _, a := range group {
			if kv, ok := toKeyValue("", a); ok {
				kvs = append(kvs, kv)
			}
		}
		return log.MapValue(kvs...)
	default:
		if err, ok := v.Any().(error); ok {
			return log.StringValue(err.Error())
		}
		return log.StringValue(v.String())
	}
}

// fanout hands each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
