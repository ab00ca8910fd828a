package domain

import (
	"context"
	"time"
)

// EventType is the category of an outbound session event.
type EventType string

const (
	EventSystem    EventType = "system"
	EventUser      EventType = "user"
	EventAssistant EventType = "assistant"
	EventNode      EventType = "node"
	EventError     EventType = "error"
)

// Event is one outbound message on a session transport.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Graph     string    `json:"graph"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID  string `json:"node_id"`
	Outcome string `json:"outcome,omitempty"`
}

// ToolEvent represents a capability invocation.
type ToolEvent struct {
	EventBase
	Invocation Invocation    `json:"invocation"`
	Result     *Result       `json:"result,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// SuspendEvent is raised when a graph yields a question to the human.
type SuspendEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	Question string `json:"question"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnSuspend    func(context.Context, *SuspendEvent)
}

// ChainHooks fans every callback out to each set of hooks, in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hooks {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *ToolEvent) {
			for _, h := range hooks {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
		OnSuspend: func(ctx context.Context, e *SuspendEvent) {
			for _, h := range hooks {
				if h.OnSuspend != nil {
					h.OnSuspend(ctx, e)
				}
			}
		},
	}
}
