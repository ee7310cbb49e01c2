package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch counters and latencies.
type Metrics struct {
	dispatches *prometheus.CounterVec
	handlers   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semop_dispatches_total",
				Help: "Total number of dispatches by operator and result",
			},
			[]string{"operator", "result"},
		),
		handlers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semop_handler_invocations_total",
				Help: "Total number of handler invocations by handler and status",
			},
			[]string{"handler", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semop_dispatch_duration_seconds",
				Help:    "Duration of dispatches",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operator"},
		),
	}
	for _, c := range []prometheus.Collector{m.dispatches, m.handlers, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns the lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnHandlerInvoked: func(ctx context.Context, e *domain.HandlerEvent) {
			m.handlers.WithLabelValues(e.Handler, string(e.Status)).Inc()
		},
		OnDispatchEnd: func(ctx context.Context, e *domain.DispatchEvent) {
			m.dispatches.WithLabelValues(e.Operator, Result(e.Err)).Inc()
			m.duration.WithLabelValues(e.Operator).Observe(e.Duration.Seconds())
		},
	}
}

// Result classifies a dispatch error into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidCall):
		return "invalid_call"
	case errors.Is(err, domain.ErrUnimplemented):
		return "unimplemented"
	case errors.Is(err, domain.ErrCircularDependency):
		return "circular_dependency"
	case errors.Is(err, domain.ErrHandlerFailure):
		return "handler_failure"
	default:
		return "error"
	}
}
