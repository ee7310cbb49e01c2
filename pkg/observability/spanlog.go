package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanLogger is a span processor that writes ended spans and their events
// to a logger at debug level. It gives a tracer provider somewhere to go
// when no exporter is configured.
type SpanLogger struct {
	logger *slog.Logger
}

var _ sdktrace.SpanProcessor = (*SpanLogger)(nil)

// NewSpanLogger creates a SpanLogger.
func NewSpanLogger(logger *slog.Logger) *SpanLogger {
	return &SpanLogger{logger: logger}
}

// OnStart does nothing; spans are logged when they end.
func (p *SpanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd logs the span, then each of its events.
func (p *SpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	ctx := context.Background()
	if !p.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	sc := s.SpanContext()
	attrs := []any{
		"name", s.Name(),
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
		"duration", s.EndTime().Sub(s.StartTime()),
		"events", len(s.Events()),
	}
	if st := s.Status(); st.Code == codes.Error {
		attrs = append(attrs, "error", st.Description)
	}
	p.logger.Debug("span_end", attrs...)

	for _, e := range s.Events() {
		eattrs := []any{"span", s.Name(), "event", e.Name}
		for _, kv := range e.Attributes {
			eattrs = append(eattrs, slog.String(string(kv.Key), kv.Value.Emit()))
		}
		p.logger.Debug("span_event", eattrs...)
	}
}

func (p *SpanLogger) Shutdown(context.Context) error { return nil }

func (p *SpanLogger) ForceFlush(context.Context) error { return nil }
