package ports

import (
	"context"

	"github.com/aretw0/jarvis/pkg/domain"
)

// EnabledSource is the externally persisted enable map of capabilities.
// It is consulted on every decision cycle, so edits apply without a restart.
type EnabledSource interface {
	IsEnabled(name string) bool
}

// EventSink receives outbound session events while a run executes.
// Emit must not block the engine.
type EventSink interface {
	Emit(ctx context.Context, ev domain.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, ev domain.Event)

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, ev domain.Event) {
	f(ctx, ev)
}

// DiscardSink drops every event.
var DiscardSink EventSink = EventSinkFunc(func(context.Context, domain.Event) {})
