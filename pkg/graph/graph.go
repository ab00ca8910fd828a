package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
)

// NodeFunc is a named unit of work. It reads the state and returns an Outcome.
// resume is non-nil only when the thread resumes at this node.
type NodeFunc func(ctx context.Context, state domain.ExecutionState, resume *Resume) Outcome

// ErrFrameMismatch is returned when a resume frame does not belong to the graph.
var ErrFrameMismatch = errors.New("resume frame does not match graph")

// Status is how a run stopped.
type Status string

const (
	StatusTerminal  Status = "terminal"
	StatusSuspended Status = "suspended"
)

// RunResult is what Run and Resume return.
type RunResult struct {
	Status   Status
	State    domain.ExecutionState
	Question string
	// Frames is the stack to persist when suspended. Frames[0] belongs to this graph.
	Frames []domain.Frame
	Steps  int
}

// Suspended reports whether the run yielded a question.
func (r RunResult) Suspended() bool {
	return r.Status == StatusSuspended
}

// Graph is a compiled, immutable execution graph.
type Graph struct {
	name    string
	entry   string
	order   []string
	nodes   map[string]NodeFunc
	static  map[string]string
	routers map[string]conditional
	logger  *slog.Logger
}

// Name returns the graph name recorded in frames.
func (g *Graph) Name() string {
	return g.name
}

// Entry returns the entry node id.
func (g *Graph) Entry() string {
	return g.entry
}

// Edge is a declared connection, used for introspection.
type Edge struct {
	From, To    string
	Conditional bool
}

// Nodes returns node ids in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Edges returns every declared edge in node declaration order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.order {
		if to, ok := g.static[id]; ok {
			edges = append(edges, Edge{From: id, To: to})
			continue
		}
		for _, to := range g.routers[id].targets {
			edges = append(edges, Edge{From: id, To: to, Conditional: true})
		}
	}
	return edges
}

// Run starts a fresh run at the entry node.
func (g *Graph) Run(ctx context.Context, state domain.ExecutionState) (RunResult, error) {
	return g.loop(ctx, g.entry, state.Clone(), nil)
}

// Resume re-enters the node recorded in frames[0] and hands it value.
// The remaining frames are passed to that node untouched.
func (g *Graph) Resume(ctx context.Context, frames []domain.Frame, value string) (RunResult, error) {
	if len(frames) == 0 {
		return RunResult{}, fmt.Errorf("resume %s: %w", g.name, domain.ErrNoPendingSuspension)
	}
	top := frames[0]
	if top.Graph != g.name {
		return RunResult{}, fmt.Errorf("%w: got %q, want %q", ErrFrameMismatch, top.Graph, g.name)
	}
	if _, ok := g.nodes[top.Node]; !ok {
		return RunResult{}, fmt.Errorf("%w: node %q not in graph %q", ErrFrameMismatch, top.Node, g.name)
	}
	resume := &Resume{Value: value, Frames: append([]domain.Frame(nil), frames[1:]...)}
	return g.loop(ctx, top.Node, top.State.Clone(), resume)
}

func (g *Graph) loop(ctx context.Context, current string, state domain.ExecutionState, resume *Resume) (RunResult, error) {
	hooks := HooksFrom(ctx)
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			return RunResult{State: state, Steps: steps}, fmt.Errorf("graph %s at %s: %w", g.name, current, err)
		}

		node := g.nodes[current]
		if hooks.OnNodeEnter != nil {
			hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: g.base(), NodeID: current})
		}
		g.logger.DebugContext(ctx, "Node enter", "graph", g.name, "node", current, "resume", resume != nil)

		out := node(ctx, state.Clone(), resume)
		resume = nil
		steps++
		state.Merge(out.Update)

		if hooks.OnNodeLeave != nil {
			hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: g.base(), NodeID: current, Outcome: out.Kind.String()})
		}

		switch out.Kind {
		case KindSuspend:
			frames := make([]domain.Frame, 0, 1+len(out.Frames))
			frames = append(frames, domain.Frame{Graph: g.name, Node: current, State: state.Clone()})
			frames = append(frames, out.Frames...)
			if hooks.OnSuspend != nil {
				hooks.OnSuspend(ctx, &domain.SuspendEvent{EventBase: g.base(), NodeID: current, Question: out.Question})
			}
			g.logger.InfoContext(ctx, "Run suspended", "graph", g.name, "node", current, "depth", len(frames))
			return RunResult{
				Status:   StatusSuspended,
				State:    state,
				Question: out.Question,
				Frames:   frames,
				Steps:    steps,
			}, nil
		case KindDone:
			return RunResult{Status: StatusTerminal, State: state, Steps: steps}, nil
		}

		next := g.next(current, state)
		if next == End {
			return RunResult{Status: StatusTerminal, State: state, Steps: steps}, nil
		}
		if _, ok := g.nodes[next]; !ok {
			return RunResult{State: state, Steps: steps}, fmt.Errorf("graph %s: edge from %s selected unknown node %q", g.name, current, next)
		}
		current = next
	}
}

func (g *Graph) next(current string, state domain.ExecutionState) string {
	if to, ok := g.static[current]; ok {
		return to
	}
	return g.routers[current].route(state)
}

func (g *Graph) base() domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Graph: g.name}
}
