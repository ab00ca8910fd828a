package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
)

// End is the terminal marker an edge returns to stop the run.
const End = "__end__"

// Router picks the next node from the merged state. It must be pure.
type Router func(state domain.ExecutionState) string

// Builder manages the graph construction.
type Builder struct {
	name    string
	order   []string
	nodes   map[string]NodeFunc
	static  map[string]string
	routers map[string]conditional
	entry   string
}

type conditional struct {
	route   Router
	targets []string
}

// NewBuilder creates a new graph builder. The name identifies the graph in
// checkpoints, so it must stay stable across releases.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		nodes:   make(map[string]NodeFunc),
		static:  make(map[string]string),
		routers: make(map[string]conditional),
	}
}

// AddNode registers a node. Re-adding an id replaces the function.
func (b *Builder) AddNode(id string, fn NodeFunc) *Builder {
	if _, ok := b.nodes[id]; !ok {
		b.order = append(b.order, id)
	}
	b.nodes[id] = fn
	return b
}

// AddEdge adds an unconditional edge. to may be End.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.static[from] = to
	return b
}

// AddConditionalEdge routes from a node through a Router.
// targets declares every id the router may return; it is used for validation
// and introspection.
func (b *Builder) AddConditionalEdge(from string, route Router, targets ...string) *Builder {
	b.routers[from] = conditional{route: route, targets: targets}
	return b
}

// SetEntry sets the node a fresh run starts at.
func (b *Builder) SetEntry(id string) *Builder {
	b.entry = id
	return b
}

// CompileError lists every problem found while compiling.
type CompileError struct {
	Graph    string
	Problems []string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("graph %q: %s", e.Graph, strings.Join(e.Problems, "; "))
}

// Option configures a compiled Graph.
type Option func(*Graph)

// WithLogger sets the logger used for step tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// Compile validates the definition and freezes it into a Graph.
func (b *Builder) Compile(opts ...Option) (*Graph, error) {
	var problems []string
	known := func(id string) bool {
		_, ok := b.nodes[id]
		return ok || id == End
	}

	if b.name == "" {
		problems = append(problems, "graph name is empty")
	}
	if b.entry == "" {
		problems = append(problems, "entry node not set")
	} else if _, ok := b.nodes[b.entry]; !ok {
		problems = append(problems, fmt.Sprintf("entry node %q not found", b.entry))
	}

	for _, id := range b.order {
		to, hasStatic := b.static[id]
		cond, hasCond := b.routers[id]
		switch {
		case hasStatic && hasCond:
			problems = append(problems, fmt.Sprintf("node %q has both a static and a conditional edge", id))
		case !hasStatic && !hasCond:
			problems = append(problems, fmt.Sprintf("node %q has no outgoing edge", id))
		case hasStatic && !known(to):
			problems = append(problems, fmt.Sprintf("edge %s -> %s targets unknown node", id, to))
		case hasCond:
			for _, target := range cond.targets {
				if !known(target) {
					problems = append(problems, fmt.Sprintf("edge %s -> %s targets unknown node", id, target))
				}
			}
		}
	}
	for _, from := range slices.Sorted(maps.Keys(b.static)) {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge from unknown node %q", from))
		}
	}
	for _, from := range slices.Sorted(maps.Keys(b.routers)) {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge from unknown node %q", from))
		}
	}

	if len(problems) > 0 {
		return nil, &CompileError{Graph: b.name, Problems: problems}
	}

	g := &Graph{
		name:    b.name,
		entry:   b.entry,
		order:   append([]string(nil), b.order...),
		nodes:   make(map[string]NodeFunc, len(b.nodes)),
		static:  make(map[string]string, len(b.static)),
		routers: make(map[string]conditional, len(b.routers)),
		logger:  slog.New(slog.DiscardHandler),
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.static {
		g.static[k] = v
	}
	for k, v := range b.routers {
		g.routers[k] = conditional{route: v.route, targets: append([]string(nil), v.targets...)}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}
