package domain

import "time"

// ResultKind tags the variant held by a Result.
type ResultKind int

const (
	// ResultOK carries the capability output.
	ResultOK ResultKind = iota
	// ResultDelegate signals the request is outside the capability's domain.
	// The text is the request to hand to the level above.
	ResultDelegate
	// ResultError carries a failure description.
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultDelegate:
		return "delegate"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is what a capability returns to the dispatcher.
type Result struct {
	Kind ResultKind `json:"kind"`
	Text string     `json:"text"`
}

// OK builds a successful result.
func OK(text string) Result { return Result{Kind: ResultOK, Text: text} }

// Delegate builds an out-of-domain result carrying the request to escalate.
func Delegate(request string) Result { return Result{Kind: ResultDelegate, Text: request} }

// Failure builds an error result.
func Failure(reason string) Result { return Result{Kind: ResultError, Text: reason} }

// CapabilityDescriptor describes a capability to the oracle and the dispatcher.
type CapabilityDescriptor struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`

	// Async capabilities run on their own goroutine and are abandoned on timeout.
	Async bool `json:"async,omitempty" yaml:"async,omitempty" mapstructure:"async"`

	// Enabled reflects the configuration surface at the time the list was built.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// RequiresApproval gates the invocation behind a human confirmation.
	RequiresApproval bool `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty" mapstructure:"requires_approval"`

	// Completes marks the calling agent complete once the invocation ran.
	Completes bool `json:"completes,omitempty" yaml:"completes,omitempty" mapstructure:"completes"`

	// Timeout overrides the registry default when positive.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}
