package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatchStart  EventType = "dispatch_start"
	EventHandlerInvoked EventType = "handler_invoked"
	EventDispatchEnd    EventType = "dispatch_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	DispatchID string    `json:"dispatch_id"`
	Operator   string    `json:"operator"`
}

// DispatchEvent marks the start or the end of one dispatch.
type DispatchEvent struct {
	EventBase
	Candidates []string      `json:"candidates,omitempty"`
	Signs      []Sign        `json:"signs,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
}

// HandlerEvent records a single handler invocation.
type HandlerEvent struct {
	EventBase
	Handler string    `json:"handler"`
	Status  LogStatus `json:"status"`
	Detail  string    `json:"detail,omitempty"`
}

// LifecycleHooks defines callbacks for dispatch observability.
type LifecycleHooks struct {
	OnDispatchStart  func(context.Context, *DispatchEvent)
	OnHandlerInvoked func(context.Context, *HandlerEvent)
	OnDispatchEnd    func(context.Context, *DispatchEvent)
}
