package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/jarvis/pkg/domain"
)

// DebugHooks traces graph execution on logger at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "graph", e.Graph, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Leave Node", "graph", e.Graph, "node_id", e.NodeID, "outcome", e.Outcome)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("Capability Call", "graph", e.Graph, "capability", e.Invocation.Name)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.Result != nil && e.Result.Kind == domain.ResultError {
				logger.Debug("Capability Return (Error)", "capability", e.Invocation.Name, "err", e.Result.Text, "duration", e.Duration)
			} else {
				logger.Debug("Capability Return (Success)", "capability", e.Invocation.Name, "duration", e.Duration)
			}
		},
		OnSuspend: func(ctx context.Context, e *domain.SuspendEvent) {
			logger.Debug("Suspended", "graph", e.Graph, "node_id", e.NodeID)
		},
	}
}
