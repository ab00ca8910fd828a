package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/jarvis/pkg/domain"
)

// OutcomeKind tags the variant of an Outcome.
type OutcomeKind int

const (
	KindContinue OutcomeKind = iota
	KindSuspend
	KindDone
)

func (k OutcomeKind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindSuspend:
		return "suspend"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome is what a node returns. The Update is merged in every case;
// on Suspend the merged state is what gets persisted.
type Outcome struct {
	Kind     OutcomeKind
	Update   domain.Update
	Question string

	// Frames holds the stack of a nested graph that suspended inside this node.
	Frames []domain.Frame
}

// Continue merges the update and follows the outgoing edge.
func Continue(u domain.Update) Outcome {
	return Outcome{Kind: KindContinue, Update: u}
}

// Suspend merges the update, persists the position and yields the question.
func Suspend(question string, u domain.Update) Outcome {
	return Outcome{Kind: KindSuspend, Update: u, Question: question}
}

// SuspendNested is Suspend for a node whose nested graph raised the question.
func SuspendNested(question string, u domain.Update, frames []domain.Frame) Outcome {
	return Outcome{Kind: KindSuspend, Update: u, Question: question, Frames: frames}
}

// Done merges the update and ends the run without evaluating edges.
func Done(u domain.Update) Outcome {
	return Outcome{Kind: KindDone, Update: u}
}

// Resume is handed to the node that suspended when its thread resumes.
type Resume struct {
	// Value is the opaque human reply.
	Value string
	// Frames are the nested frames below the re-entered node. Empty when the
	// node itself raised the suspension.
	Frames []domain.Frame
}

// Nested reports whether the suspension came from a nested graph.
func (r *Resume) Nested() bool {
	return r != nil && len(r.Frames) > 0
}

// SuspendError carries a nested graph's suspension through a capability call.
type SuspendError struct {
	Question string
	Frames   []domain.Frame
}

func (e *SuspendError) Error() string {
	return fmt.Sprintf("suspended in %d nested frame(s): %s", len(e.Frames), e.Question)
}

type resumeKey struct{}

// WithResume attaches the resume for a capability that suspended earlier.
// Passing nil clears any resume inherited from an outer call.
func WithResume(ctx context.Context, r *Resume) context.Context {
	return context.WithValue(ctx, resumeKey{}, r)
}

// ResumeFrom returns the resume attached by WithResume, if any.
func ResumeFrom(ctx context.Context) (*Resume, bool) {
	r, ok := ctx.Value(resumeKey{}).(*Resume)
	return r, ok && r != nil
}

type hooksKey struct{}

// WithHooks attaches run-scoped lifecycle hooks. Nested graphs inherit them.
func WithHooks(ctx context.Context, hooks domain.LifecycleHooks) context.Context {
	return context.WithValue(ctx, hooksKey{}, hooks)
}

// HooksFrom returns the hooks attached to ctx, or empty hooks.
func HooksFrom(ctx context.Context) domain.LifecycleHooks {
	hooks, _ := ctx.Value(hooksKey{}).(domain.LifecycleHooks)
	return hooks
}
