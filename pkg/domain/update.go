package domain

import "slices"

// Update is the partial state a node returns.
// Nil fields are left untouched by Merge.
type Update struct {
	// Turns are appended to the log.
	Turns []Turn `json:"turns,omitempty"`

	IterationCount *int    `json:"iteration_count,omitempty"`
	Complete       *bool   `json:"complete,omitempty"`
	NeedsParent    *bool   `json:"needs_parent,omitempty"`
	PendingPayload *string `json:"pending_payload,omitempty"`

	// Scratch keys are merged one by one. A nil value deletes the key.
	Scratch map[string]any `json:"scratch,omitempty"`
}

// Merge applies the field reducers: turns append, scalars replace with latest.
// IterationCount only moves forward.
func (s *ExecutionState) Merge(u Update) {
	if len(u.Turns) > 0 {
		s.Turns = append(s.Turns, cloneTurns(u.Turns)...)
	}
	if u.IterationCount != nil && *u.IterationCount > s.IterationCount {
		s.IterationCount = *u.IterationCount
	}
	if u.Complete != nil {
		s.Complete = *u.Complete
	}
	if u.NeedsParent != nil {
		s.NeedsParent = *u.NeedsParent
	}
	if u.PendingPayload != nil {
		s.PendingPayload = *u.PendingPayload
	}
	for k, v := range u.Scratch {
		if s.Scratch == nil {
			s.Scratch = make(map[string]any)
		}
		if v == nil {
			delete(s.Scratch, k)
			continue
		}
		s.Scratch[k] = cloneValue(v)
	}
}

// Append adds turns to the update and returns it.
func (u Update) Append(turns ...Turn) Update {
	u.Turns = append(u.Turns, turns...)
	return u
}

// Set stores a scratch value on the update and returns it.
func (u Update) Set(key string, value any) Update {
	if u.Scratch == nil {
		u.Scratch = make(map[string]any)
	}
	u.Scratch[key] = value
	return u
}

// Ptr returns a pointer to v. Handy for Update literals.
func Ptr[T any](v T) *T {
	return &v
}

// ScratchInt reads an integer scratch value, tolerating the float64 that
// JSON round trips produce.
func (s ExecutionState) ScratchInt(key string) (int, bool) {
	switch v := s.Scratch[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// ScratchStrings reads a string list scratch value, tolerating the []any
// that JSON round trips produce.
func (s ExecutionState) ScratchStrings(key string) []string {
	switch v := s.Scratch[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
