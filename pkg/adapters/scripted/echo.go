package scripted

import (
	"context"
	"fmt"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

// Echo answers every request by repeating the last user turn.
// It lets the server and the chat command run without a model backend.
type Echo struct{}

// Decide implements ports.Oracle.
func (Echo) Decide(_ context.Context, req ports.OracleRequest) (ports.Decision, error) {
	s := domain.NewState(req.Turns...)
	return ports.Decision{
		Text: fmt.Sprintf("(offline) You said: %s", s.LastUserText()),
	}, nil
}
