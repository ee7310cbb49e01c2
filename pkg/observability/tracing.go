package observability

import (
	"context"

	"github.com/aretw0/semop/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing records dispatch events on the span found in the context, if any.
// Nested dispatches land on the same span, each tagged with its dispatch ID.
func Tracing() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatchStart: func(ctx context.Context, e *domain.DispatchEvent) {
			span := trace.SpanFromContext(ctx)
			if !span.IsRecording() {
				return
			}
			span.AddEvent("semop.dispatch.start", trace.WithAttributes(
				attribute.String("semop.dispatch_id", e.DispatchID),
				attribute.String("semop.operator", e.Operator),
				attribute.StringSlice("semop.candidates", e.Candidates),
			))
		},
		OnHandlerInvoked: func(ctx context.Context, e *domain.HandlerEvent) {
			span := trace.SpanFromContext(ctx)
			if !span.IsRecording() {
				return
			}
			span.AddEvent("semop.handler", trace.WithAttributes(
				attribute.String("semop.dispatch_id", e.DispatchID),
				attribute.String("semop.handler", e.Handler),
				attribute.String("semop.status", string(e.Status)),
				attribute.String("semop.detail", e.Detail),
			))
		},
		OnDispatchEnd: func(ctx context.Context, e *domain.DispatchEvent) {
			span := trace.SpanFromContext(ctx)
			if !span.IsRecording() {
				return
			}
			attrs := []attribute.KeyValue{
				attribute.String("semop.dispatch_id", e.DispatchID),
				attribute.String("semop.operator", e.Operator),
				attribute.Int("semop.signs", len(e.Signs)),
				attribute.Int64("semop.duration_us", e.Duration.Microseconds()),
				attribute.String("semop.result", Result(e.Err)),
			}
			span.AddEvent("semop.dispatch.end", trace.WithAttributes(attrs...))
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, Result(e.Err))
			}
		},
	}
}
