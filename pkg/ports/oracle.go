package ports

import (
	"context"

	"github.com/aretw0/jarvis/pkg/domain"
)

// OracleRequest is everything the reasoning step sees in one decision cycle.
type OracleRequest struct {
	// Agent names the graph asking, so one backend can serve several agents.
	Agent        string
	Turns        []domain.Turn
	Capabilities []domain.CapabilityDescriptor
	// Context is injected background (core memory, date).
	Context string
}

// Decision is the oracle's answer: either final text, or an ordered batch of invocations.
type Decision struct {
	Text        string
	Invocations []domain.Invocation
}

// Oracle is the decision boundary. One blocking call per cycle; the engine
// applies the timeout and never retries.
type Oracle interface {
	Decide(ctx context.Context, req OracleRequest) (Decision, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req OracleRequest) (Decision, error)

// Decide calls f.
func (f OracleFunc) Decide(ctx context.Context, req OracleRequest) (Decision, error) {
	return f(ctx, req)
}
