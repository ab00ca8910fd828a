package capabilities

import (
	"context"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/registry"
)

// Think lets the oracle reason out loud; it has no side effect.
func Think() registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "think_tool",
			Description: "Think about the current context, what you are trying to achieve and how. Use it to reason through complex problems step by step.",
			Parameters:  schema([]string{"thought"}, map[string]any{"thought": str("Your reasoning.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Thought string `mapstructure:"thought"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Reflection: " + in.Thought), nil
		},
	}
}

// TaskComplete is the completion sentinel: calling it ends the run once the
// current batch has executed.
func TaskComplete() registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "task_complete",
			Description: "Signal that the task is complete. Call it when all requested actions are done and you have the final answer for the user.",
			Parameters:  schema([]string{"summary"}, map[string]any{"summary": str("A brief summary of what was accomplished.")}),
			Completes:   true,
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Summary string `mapstructure:"summary"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Task Complete: " + strings.TrimSpace(in.Summary)), nil
		},
	}
}
