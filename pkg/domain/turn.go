package domain

// TurnKind tags the variant held by a Turn.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnAssistant  TurnKind = "assistant"
	TurnToolResult TurnKind = "tool_result"
	TurnSystem     TurnKind = "system"
)

// Invocation is a capability call requested by the decision oracle.
// Ideally compatible with OpenAI/MCP tool call schemas.
type Invocation struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`
	Name string         `json:"name" yaml:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Turn is one entry in the append-only conversation log.
// Only the fields relevant to Kind are populated.
type Turn struct {
	Kind TurnKind `json:"kind"`
	Text string   `json:"text,omitempty"`

	// Invocations are set on assistant turns, in the order the oracle requested them.
	Invocations []Invocation `json:"invocations,omitempty"`

	// InvocationID and Capability identify the call a tool result answers.
	InvocationID string `json:"invocation_id,omitempty"`
	Capability   string `json:"capability,omitempty"`

	// IsError marks failed tool results and error notes.
	IsError bool `json:"is_error,omitempty"`
}

// UserTurn creates a turn carrying human input.
func UserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Text: text}
}

// AssistantTurn creates an oracle turn with an optional batch of invocations.
func AssistantTurn(text string, invocations ...Invocation) Turn {
	return Turn{Kind: TurnAssistant, Text: text, Invocations: invocations}
}

// ToolResultTurn creates the turn answering one invocation.
func ToolResultTurn(inv Invocation, payload string, isError bool) Turn {
	return Turn{
		Kind:         TurnToolResult,
		Text:         payload,
		InvocationID: inv.ID,
		Capability:   inv.Name,
		IsError:      isError,
	}
}

// SystemNote creates an engine-authored note.
func SystemNote(text string) Turn {
	return Turn{Kind: TurnSystem, Text: text}
}

// ErrorNote creates a system note that terminates a run with an error.
func ErrorNote(text string) Turn {
	return Turn{Kind: TurnSystem, Text: text, IsError: true}
}

// HasInvocations reports whether the turn requests any capability.
func (t Turn) HasInvocations() bool {
	return t.Kind == TurnAssistant && len(t.Invocations) > 0
}

func cloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t
		if t.Invocations != nil {
			out[i].Invocations = make([]Invocation, len(t.Invocations))
			for j, inv := range t.Invocations {
				inv.Args = CloneMap(inv.Args)
				out[i].Invocations[j] = inv
			}
		}
	}
	return out
}
