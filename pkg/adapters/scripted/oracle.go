// Package scripted provides deterministic oracles for tests, demos and offline runs.
package scripted

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

// Step configures one decision in a scripted sequence.
type Step struct {
	// Agent, when set, asserts which agent graph asks for this decision.
	Agent    string
	Decision ports.Decision
	Err      error
	// Delay simulates a slow backend; it honors context cancellation.
	Delay time.Duration
}

// Answer is a step returning final text.
func Answer(agent, text string) Step {
	return Step{Agent: agent, Decision: ports.Decision{Text: text}}
}

// Call is a step requesting one invocation.
func Call(agent, name string, args map[string]any) Step {
	return Step{Agent: agent, Decision: ports.Decision{
		Invocations: []domain.Invocation{{Name: name, Args: args}},
	}}
}

// Calls is a step requesting a batch of invocations with optional text.
func Calls(agent, text string, invocations ...domain.Invocation) Step {
	return Step{Agent: agent, Decision: ports.Decision{Text: text, Invocations: invocations}}
}

// Fail is a step returning an error.
func Fail(agent string, err error) Step {
	return Step{Agent: agent, Err: err}
}

// Oracle replays steps in order. It is safe for concurrent use.
type Oracle struct {
	mu       sync.Mutex
	index    int
	steps    []Step
	repeat   bool
	requests []ports.OracleRequest
}

var _ ports.Oracle = (*Oracle)(nil)

// New creates an oracle that fails once the script is exhausted.
func New(steps ...Step) *Oracle {
	return &Oracle{steps: append([]Step(nil), steps...)}
}

// Repeating creates an oracle that replays its last step forever.
func Repeating(steps ...Step) *Oracle {
	o := New(steps...)
	o.repeat = true
	return o
}

// Decide implements ports.Oracle.
func (o *Oracle) Decide(ctx context.Context, req ports.OracleRequest) (ports.Decision, error) {
	o.mu.Lock()
	o.requests = append(o.requests, cloneRequest(req))
	if o.index >= len(o.steps) && !(o.repeat && len(o.steps) > 0) {
		n := o.index + 1
		o.mu.Unlock()
		return ports.Decision{}, fmt.Errorf("script exhausted at step %d", n)
	}
	i := min(o.index, len(o.steps)-1)
	step := o.steps[i]
	o.index++
	o.mu.Unlock()

	if step.Agent != "" && step.Agent != req.Agent {
		return ports.Decision{}, fmt.Errorf("script step %d expected agent %q, got %q", i+1, step.Agent, req.Agent)
	}
	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return ports.Decision{}, ctx.Err()
		}
	}
	if step.Err != nil {
		return ports.Decision{}, step.Err
	}
	d := step.Decision
	d.Invocations = append([]domain.Invocation(nil), d.Invocations...)
	for j := range d.Invocations {
		d.Invocations[j].Args = domain.CloneMap(d.Invocations[j].Args)
	}
	return d, nil
}

// Requests returns every request received so far.
func (o *Oracle) Requests() []ports.OracleRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ports.OracleRequest(nil), o.requests...)
}

// Calls returns how many decisions were asked for.
func (o *Oracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.index
}

func cloneRequest(req ports.OracleRequest) ports.OracleRequest {
	req.Turns = domain.NewState(req.Turns...).Clone().Turns
	req.Capabilities = append([]domain.CapabilityDescriptor(nil), req.Capabilities...)
	return req
}
