package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/registry"
)

// EscalateName is the capability a sub-agent calls when a request is outside its domain.
const EscalateName = "escalate_to_parent"

// Escalate returns the capability sub-agents use to hand a request back.
func Escalate() registry.Capability {
	return registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        EscalateName,
			Description: "Hand the user's request back to the main assistant when it is outside your domain. Pass the user's original words.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"request": map[string]any{"type": "string", "description": "The user's request, verbatim."},
				},
				"required": []string{"request"},
			},
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			request, _ := args["request"].(string)
			return domain.Delegate(request), nil
		},
	}
}

// SubAgent exposes a compiled sub-agent graph as a single capability of its parent.
type SubAgent struct {
	Graph *graph.Graph
	// Arg is the argument carrying the request text.
	Arg string
	// Descriptor is what the parent oracle sees. Its Name is the capability name.
	Descriptor domain.CapabilityDescriptor
}

// Capability wraps the sub-agent for registration in the parent registry.
func (s SubAgent) Capability() registry.Capability {
	d := s.Descriptor
	if d.Parameters == nil {
		d.Parameters = map[string]any{
			"type": "object",
			"properties": map[string]any{
				s.Arg: map[string]any{"type": "string", "description": "The user's request, verbatim."},
			},
			"required": []string{s.Arg},
		}
	}
	return registry.Capability{Descriptor: d, Invoke: s.invoke}
}

func (s SubAgent) invoke(ctx context.Context, args map[string]any) (domain.Result, error) {
	var (
		res graph.RunResult
		err error
	)
	if r, ok := graph.ResumeFrom(ctx); ok && r.Nested() {
		// Nested capabilities of the sub-agent must not see our resume.
		res, err = s.Graph.Resume(graph.WithResume(ctx, nil), r.Frames, r.Value)
	} else {
		request, _ := args[s.Arg].(string)
		if strings.TrimSpace(request) == "" {
			return domain.Failure(fmt.Sprintf("missing argument %q", s.Arg)), nil
		}
		res, err = s.Graph.Run(graph.WithResume(ctx, nil), domain.NewState(domain.UserTurn(request)))
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("%s: %w", s.Graph.Name(), err)
	}

	if res.Suspended() {
		return domain.Result{}, &graph.SuspendError{Question: res.Question, Frames: res.Frames}
	}
	if res.State.NeedsParent {
		return domain.Delegate(res.State.PendingPayload), nil
	}
	if last, ok := res.State.LastTurn(); ok && last.Kind == domain.TurnSystem && last.IsError {
		return domain.Failure(last.Text), nil
	}
	return domain.OK(Summary(res.State)), nil
}

// Summary is the text a finished sub-agent reports to its parent: its last
// answer, or the last successful tool result when it ended on a completion call.
func Summary(s domain.ExecutionState) string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		t := s.Turns[i]
		switch t.Kind {
		case domain.TurnToolResult:
			if !t.IsError && t.Text != "" {
				return t.Text
			}
		case domain.TurnAssistant, domain.TurnSystem:
			if t.Text != "" {
				return t.Text
			}
		}
	}
	return "Done."
}
