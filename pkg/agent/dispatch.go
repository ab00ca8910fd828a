package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
)

// Scratch keys of a suspended batch: the invocation it stopped at and the
// requests handed back by invocations that already ran.
const (
	scratchCursor    = "dispatch_cursor"
	scratchDelegated = "dispatch_delegated"
)

// RepromptText replaces a delegation that carried no request.
const RepromptText = "A specialist handed the conversation back without a request. Ask the user how you can help."

// execute dispatches the last assistant turn's invocations in request order.
func (a *Agent) execute(ctx context.Context, s domain.ExecutionState, resume *graph.Resume) graph.Outcome {
	last, ok := s.LastAssistant()
	if !ok || !last.HasInvocations() {
		return graph.Continue(domain.Update{})
	}

	var (
		u         domain.Update
		complete  bool
		delegated []string
		start     int
	)
	if resume != nil {
		start, _ = s.ScratchInt(scratchCursor)
		if start < 0 || start >= len(last.Invocations) {
			start = 0
		}
		delegated = s.ScratchStrings(scratchDelegated)
	}
	for _, inv := range last.Invocations[:start] {
		if a.completedBy(inv, s.Turns) {
			complete = true
		}
	}

	for i := start; i < len(last.Invocations); i++ {
		inv := last.Invocations[i]
		var r *graph.Resume
		if i == start {
			r = resume
		}

		if a.needsApproval(inv.Name) && !r.Nested() {
			if r == nil {
				question := approvalQuestion(inv)
				u.Turns = append(u.Turns, domain.SystemNote(question))
				return graph.Suspend(question, suspendedAt(u, i, delegated))
			}
			u.Turns = append(u.Turns, domain.UserTurn(r.Value))
			verdict := a.approver.Classify(r.Value)
			a.logger.InfoContext(ctx, "Approval reply", "agent", a.name, "capability", inv.Name, "verdict", verdict.String())
			if verdict != VerdictApprove {
				u.Turns = append(u.Turns, domain.ToolResultTurn(inv, deniedText(verdict, r.Value), true))
				continue
			}
			r = nil
		}

		res, err := a.invoke(ctx, inv, r)
		var suspend *graph.SuspendError
		if errors.As(err, &suspend) {
			return graph.SuspendNested(suspend.Question, suspendedAt(u, i, delegated), suspend.Frames)
		}

		switch res.Kind {
		case domain.ResultOK:
			u.Turns = append(u.Turns, domain.ToolResultTurn(inv, res.Text, false))
			if a.completes(inv.Name) {
				complete = true
			}
		case domain.ResultError:
			u.Turns = append(u.Turns, domain.ToolResultTurn(inv, "Error: "+res.Text, true))
		case domain.ResultDelegate:
			if a.nested {
				return a.escalate(ctx, s, u, inv, res.Text)
			}
			u.Turns = append(u.Turns, domain.ToolResultTurn(inv, "Handed back to the main assistant.", false))
			delegated = append(delegated, res.Text)
		}
	}

	// Delegated requests become fresh user turns after the whole batch.
	for _, payload := range delegated {
		if strings.TrimSpace(payload) == "" {
			u.Turns = append(u.Turns, domain.SystemNote(RepromptText))
			continue
		}
		u.Turns = append(u.Turns, domain.UserTurn(payload))
	}

	u = u.Set(scratchCursor, nil).Set(scratchDelegated, nil)
	if complete {
		u.Complete = domain.Ptr(true)
		u.IterationCount = domain.Ptr(max(s.IterationCount, a.maxIterations) + 1)
	}
	return graph.Continue(u)
}

// escalate ends a sub-agent run immediately and hands the request to the parent.
func (a *Agent) escalate(ctx context.Context, s domain.ExecutionState, u domain.Update, inv domain.Invocation, payload string) graph.Outcome {
	if strings.TrimSpace(payload) == "" {
		payload = s.LastUserText()
	}
	a.logger.InfoContext(ctx, "Escalating to parent", "agent", a.name, "capability", inv.Name)
	u.Turns = append(u.Turns, domain.ToolResultTurn(inv, "Escalated to the main assistant.", false))
	u.NeedsParent = domain.Ptr(true)
	u.PendingPayload = &payload
	u.Complete = domain.Ptr(true)
	return graph.Done(u.Set(scratchCursor, nil).Set(scratchDelegated, nil))
}

// suspendedAt records where a batch stopped so its resume can pick up the
// cursor and every request delegated so far.
func suspendedAt(u domain.Update, cursor int, delegated []string) domain.Update {
	u = u.Set(scratchCursor, cursor)
	if len(delegated) == 0 {
		return u.Set(scratchDelegated, nil)
	}
	pending := make([]any, len(delegated))
	for i, d := range delegated {
		pending[i] = d
	}
	return u.Set(scratchDelegated, pending)
}

func (a *Agent) invoke(ctx context.Context, inv domain.Invocation, r *graph.Resume) (domain.Result, error) {
	hooks := graph.HooksFrom(ctx)
	base := domain.EventBase{Timestamp: time.Now(), Graph: a.name}
	if hooks.OnToolCall != nil {
		hooks.OnToolCall(ctx, &domain.ToolEvent{EventBase: base, Invocation: inv})
	}

	start := time.Now()
	res, err := a.registry.Invoke(graph.WithResume(ctx, r), inv)

	if err == nil && hooks.OnToolReturn != nil {
		hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Graph: a.name},
			Invocation: inv,
			Result:     &res,
			Duration:   time.Since(start),
		})
	}
	return res, err
}

func (a *Agent) needsApproval(name string) bool {
	c, ok := a.registry.Lookup(name)
	return ok && c.Descriptor.RequiresApproval && a.registry.IsEnabled(name)
}

// completedBy tells whether an invocation that ran before a suspension
// completed the agent, by finding its successful result in the log.
func (a *Agent) completedBy(inv domain.Invocation, turns []domain.Turn) bool {
	if !a.completes(inv.Name) {
		return false
	}
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Kind == domain.TurnToolResult && t.InvocationID == inv.ID {
			return !t.IsError
		}
	}
	return false
}

func approvalQuestion(inv domain.Invocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Approval needed for %s", inv.Name)
	if len(inv.Args) > 0 {
		args, err := json.MarshalIndent(inv.Args, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, ":\n%s", args)
		}
	}
	b.WriteString("\nShall I go ahead? (yes/no)")
	return b.String()
}

func deniedText(v Verdict, reply string) string {
	if v == VerdictDecline {
		return "Denied by the user. Do not retry unless asked."
	}
	return fmt.Sprintf("Not approved. The user replied: %q. Revise and ask again.", reply)
}
