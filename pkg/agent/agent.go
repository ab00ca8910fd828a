package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/google/uuid"
)

// Node ids of every agent graph.
const (
	NodeDecide  = "decide"
	NodeExecute = "execute"
	NodeLimit   = "limit"
)

const (
	// DefaultMaxIterations bounds the decision cycles of one run.
	DefaultMaxIterations = 10
	// DefaultOracleTimeout bounds one oracle call.
	DefaultOracleTimeout = 60 * time.Second
)

// ContextProvider builds the context string injected into each oracle request
// from the state about to be decided on.
type ContextProvider func(ctx context.Context, s domain.ExecutionState) string

// Agent holds what the nodes of one agent graph share.
type Agent struct {
	name          string
	oracle        ports.Oracle
	registry      *registry.Registry
	maxIterations int
	oracleTimeout time.Duration
	context       ContextProvider
	approver      ApprovalClassifier
	nested        bool
	logger        *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations sets the iteration ceiling. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithOracleTimeout bounds each oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.oracleTimeout = d
		}
	}
}

// WithContextProvider injects background context (core memory, recalled
// memories) into each decision.
func WithContextProvider(p ContextProvider) Option {
	return func(a *Agent) {
		a.context = p
	}
}

// WithApprover replaces the KeywordClassifier used by the approval gate.
func WithApprover(c ApprovalClassifier) Option {
	return func(a *Agent) {
		a.approver = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// AsSubAgent makes the graph behave as a nested agent: an answer without
// invocations is a question for the human, and a Delegate result escalates to
// the parent instead of re-prompting locally.
func AsSubAgent() Option {
	return func(a *Agent) {
		a.nested = true
	}
}

// New compiles the decide/execute/limit graph of an agent.
//
//	decide ──► execute ──► decide ...
//	   │           └─────► end (completion, escalation)
//	   ├─► limit ─► end (iteration ceiling)
//	   └─► end (final answer)
func New(name string, oracle ports.Oracle, reg *registry.Registry, opts ...Option) (*graph.Graph, error) {
	if oracle == nil {
		return nil, errors.New("agent: oracle is required")
	}
	if reg == nil {
		return nil, errors.New("agent: registry is required")
	}
	a := &Agent{
		name:          name,
		oracle:        oracle,
		registry:      reg,
		maxIterations: DefaultMaxIterations,
		oracleTimeout: DefaultOracleTimeout,
		approver:      KeywordClassifier{},
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}

	targets := []string{NodeDecide, NodeExecute, NodeLimit, graph.End}
	return graph.NewBuilder(name).
		AddNode(NodeDecide, a.decide).
		AddNode(NodeExecute, a.execute).
		AddNode(NodeLimit, a.limit).
		AddConditionalEdge(NodeDecide, a.route, targets...).
		AddConditionalEdge(NodeExecute, a.route, targets...).
		AddEdge(NodeLimit, graph.End).
		SetEntry(NodeDecide).
		Compile(graph.WithLogger(a.logger))
}

// route is the iteration and termination policy. It is pure.
func (a *Agent) route(s domain.ExecutionState) string {
	if s.Complete || s.NeedsParent {
		return graph.End
	}
	last, ok := s.LastTurn()
	if !ok {
		return graph.End
	}
	switch last.Kind {
	case domain.TurnAssistant:
		if !last.HasInvocations() {
			return graph.End
		}
		// The sentinel wins even exactly at the ceiling.
		if a.requestsCompletion(last) {
			return NodeExecute
		}
		if s.IterationCount >= a.maxIterations {
			return NodeLimit
		}
		return NodeExecute
	default:
		// Tool results, a resumed answer or a delegated request: decide again.
		return NodeDecide
	}
}

func (a *Agent) requestsCompletion(t domain.Turn) bool {
	for _, inv := range t.Invocations {
		if a.completes(inv.Name) {
			return true
		}
	}
	return false
}

func (a *Agent) completes(name string) bool {
	c, ok := a.registry.Lookup(name)
	return ok && c.Descriptor.Completes
}

func (a *Agent) decide(ctx context.Context, s domain.ExecutionState, resume *graph.Resume) graph.Outcome {
	if resume != nil {
		// A sub-agent question was answered; the reply is the blocking read's result.
		return graph.Continue(domain.Update{Turns: []domain.Turn{domain.UserTurn(resume.Value)}})
	}

	count := s.IterationCount + 1
	req := ports.OracleRequest{
		Agent:        a.name,
		Turns:        s.Turns,
		Capabilities: a.registry.Descriptors(),
	}
	if a.context != nil {
		req.Context = a.context(ctx, s)
	}

	octx, cancel := context.WithTimeout(ctx, a.oracleTimeout)
	decision, err := a.oracle.Decide(octx, req)
	cancel()
	if err != nil {
		a.logger.ErrorContext(ctx, "Oracle failed", "agent", a.name, "iteration", count, "error", err)
		return graph.Done(domain.Update{
			Turns:          []domain.Turn{domain.ErrorNote(fmt.Sprintf("I could not reach my reasoning service: %v", err))},
			IterationCount: &count,
		})
	}

	invocations := make([]domain.Invocation, len(decision.Invocations))
	for i, inv := range decision.Invocations {
		if inv.ID == "" {
			inv.ID = "call_" + uuid.NewString()
		}
		invocations[i] = inv
	}
	u := domain.Update{
		Turns:          []domain.Turn{domain.AssistantTurn(decision.Text, invocations...)},
		IterationCount: &count,
	}
	a.logger.DebugContext(ctx, "Decision", "agent", a.name, "iteration", count, "invocations", len(invocations))

	if a.nested && len(invocations) == 0 {
		question := decision.Text
		if question == "" {
			question = "Could you give me a bit more detail?"
		}
		return graph.Suspend(question, u)
	}
	return graph.Continue(u)
}

func (a *Agent) limit(ctx context.Context, s domain.ExecutionState, _ *graph.Resume) graph.Outcome {
	a.logger.WarnContext(ctx, "Iteration ceiling reached", "agent", a.name, "max", a.maxIterations)
	return graph.Done(domain.Update{Turns: []domain.Turn{
		domain.SystemNote(fmt.Sprintf("Maximum iterations (%d) reached. Stopping here; ask me to continue if there is more to do.", a.maxIterations)),
	}})
}
