package domain

import "time"

// CheckpointStatus tells whether a checkpoint still waits for a resume value.
type CheckpointStatus string

const (
	CheckpointSuspended CheckpointStatus = "suspended"
	CheckpointCompleted CheckpointStatus = "completed"
)

// Frame is one active graph execution in a thread's stack.
// Node is the node to re-enter on resume.
type Frame struct {
	Graph string         `json:"graph"`
	Node  string         `json:"node"`
	State ExecutionState `json:"state"`
}

// Checkpoint is the persisted snapshot of a thread.
// Frames[0] is the top-level graph, the last frame raised the suspension.
type Checkpoint struct {
	ThreadID  string           `json:"thread_id"`
	Status    CheckpointStatus `json:"status"`
	Question  string           `json:"question,omitempty"`
	Frames    []Frame          `json:"frames,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Version increments on every save of the thread.
	Version int `json:"version"`
}

// Pending reports whether the thread has an outstanding suspension.
func (c *Checkpoint) Pending() bool {
	return c != nil && c.Status == CheckpointSuspended && len(c.Frames) > 0
}

// Root returns the state of the top-level frame.
func (c *Checkpoint) Root() (ExecutionState, bool) {
	if c == nil || len(c.Frames) == 0 {
		return ExecutionState{}, false
	}
	return c.Frames[0].State, true
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	if c.Frames != nil {
		out.Frames = make([]Frame, len(c.Frames))
		for i, f := range c.Frames {
			f.State = f.State.Clone()
			out.Frames[i] = f
		}
	}
	return &out
}
