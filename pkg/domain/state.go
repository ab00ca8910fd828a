package domain

// ExecutionState is the state owned by one in-flight run.
// Nodes never mutate it directly; they return an Update which is merged.
type ExecutionState struct {
	// Turns is the ordered conversation log. Append-only.
	Turns []Turn `json:"turns"`

	// IterationCount counts decision cycles. Never decreases within a run.
	IterationCount int `json:"iteration_count"`

	// Complete is set when a completion capability ran.
	Complete bool `json:"complete"`

	// Scratch holds handler-specific values (batch cursors, drafts).
	Scratch map[string]any `json:"scratch,omitempty"`

	// NeedsParent marks a sub-agent that cannot serve the request.
	NeedsParent bool `json:"needs_parent"`

	// PendingPayload is the request handed back to the parent when NeedsParent is set.
	PendingPayload string `json:"pending_payload,omitempty"`
}

// NewState creates a clean state seeded with the given turns.
func NewState(turns ...Turn) ExecutionState {
	return ExecutionState{
		Turns:   append([]Turn(nil), turns...),
		Scratch: make(map[string]any),
	}
}

// Clone returns a deep copy of the state.
func (s ExecutionState) Clone() ExecutionState {
	out := s
	out.Turns = cloneTurns(s.Turns)
	out.Scratch = CloneMap(s.Scratch)
	return out
}

// LastTurn returns the most recent turn, if any.
func (s ExecutionState) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// LastAssistant returns the most recent assistant turn, if any.
func (s ExecutionState) LastAssistant() (Turn, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Kind == TurnAssistant {
			return s.Turns[i], true
		}
	}
	return Turn{}, false
}

// LastUserText returns the text of the most recent user turn.
func (s ExecutionState) LastUserText() string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Kind == TurnUser {
			return s.Turns[i].Text
		}
	}
	return ""
}

// FinalAnswer picks the text that closes a request cycle:
// the last non-empty assistant text, or the last system note when the
// run ended without one (iteration ceiling, oracle failure).
func (s ExecutionState) FinalAnswer() (string, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		t := s.Turns[i]
		switch t.Kind {
		case TurnSystem:
			return t.Text, t.IsError
		case TurnAssistant:
			if t.Text != "" {
				return t.Text, false
			}
		}
	}
	return "", false
}

// CloneMap deep copies nested maps and slices of a JSON-like value tree.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
