package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/semop/pkg/domain"
)

// Logging writes one record per lifecycle event at Info level, and dispatch
// failures at Warn.
func Logging(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatchStart: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.InfoContext(ctx, "dispatch_start",
				"dispatch_id", e.DispatchID,
				"operator", e.Operator,
				"candidates", e.Candidates,
			)
		},
		OnHandlerInvoked: func(ctx context.Context, e *domain.HandlerEvent) {
			logger.InfoContext(ctx, "handler_invoked",
				"dispatch_id", e.DispatchID,
				"handler", e.Handler,
				"status", e.Status,
			)
		},
		OnDispatchEnd: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "dispatch_end",
					"dispatch_id", e.DispatchID,
					"operator", e.Operator,
					"result", Result(e.Err),
					"duration", e.Duration,
				)
				return
			}
			logger.InfoContext(ctx, "dispatch_end",
				"dispatch_id", e.DispatchID,
				"operator", e.Operator,
				"signs", len(e.Signs),
				"duration", e.Duration,
			)
		},
	}
}

// Combine returns hooks that call every non-nil hook of each argument, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var combined domain.LifecycleHooks

	var starts, ends []func(context.Context, *domain.DispatchEvent)
	var invoked []func(context.Context, *domain.HandlerEvent)
	for _, h := range hooks {
		if h.OnDispatchStart != nil {
			starts = append(starts, h.OnDispatchStart)
		}
		if h.OnHandlerInvoked != nil {
			invoked = append(invoked, h.OnHandlerInvoked)
		}
		if h.OnDispatchEnd != nil {
			ends = append(ends, h.OnDispatchEnd)
		}
	}

	if len(starts) > 0 {
		combined.OnDispatchStart = func(ctx context.Context, e *domain.DispatchEvent) {
			for _, fn := range starts {
				fn(ctx, e)
			}
		}
	}
	if len(invoked) > 0 {
		combined.OnHandlerInvoked = func(ctx context.Context, e *domain.HandlerEvent) {
			for _, fn := range invoked {
				fn(ctx, e)
			}
		}
	}
	if len(ends) > 0 {
		combined.OnDispatchEnd = func(ctx context.Context, e *domain.DispatchEvent) {
			for _, fn := range ends {
				fn(ctx, e)
			}
		}
	}
	return combined
}
