package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/jarvis/internal/logging"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
)

// DefaultHistoryLimit bounds the turns carried from one run of a thread into the next.
const DefaultHistoryLimit = 200

// BusyText is the error event sent to a caller that collides with a running request.
const BusyText = "I'm still working on your previous message. Try again in a moment."

// InputError reports a message rejected before reaching the engine.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// Reply is the outcome of one request cycle.
type Reply struct {
	ThreadID string `json:"thread_id"`
	// Suspended is true when Text is a question awaiting the human's answer.
	Suspended bool   `json:"suspended"`
	Text      string `json:"text"`
	IsError   bool   `json:"is_error,omitempty"`
	Version   int    `json:"version"`
}

// RunObserver is told the outcome of every request cycle.
type RunObserver func(ctx context.Context, threadID string, reply Reply, err error)

// Controller runs inbound messages against a compiled graph, resuming the
// thread's pending suspension when there is one.
type Controller struct {
	graph        *graph.Graph
	manager      *Manager
	hooks        domain.LifecycleHooks
	historyLimit int
	observer     RunObserver
	logger       *slog.Logger
	now          func() time.Time
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithHooks adds lifecycle hooks to every run, after those found in the context.
func WithHooks(h domain.LifecycleHooks) ControllerOption {
	return func(c *Controller) {
		c.hooks = h
	}
}

// WithHistoryLimit bounds the turns carried into a thread's next run.
// Zero or less keeps everything.
func WithHistoryLimit(n int) ControllerOption {
	return func(c *Controller) {
		c.historyLimit = n
	}
}

// WithRunObserver reports each request cycle's outcome to o.
func WithRunObserver(o RunObserver) ControllerOption {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller for g whose threads live in m.
func NewController(g *graph.Graph, m *Manager, opts ...ControllerOption) *Controller {
	c := &Controller{
		graph:        g,
		manager:      m,
		historyLimit: DefaultHistoryLimit,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle processes one inbound message. A pending suspension is resumed with
// the message as the answer; otherwise a fresh run starts at the entry node,
// carrying the thread's earlier conversation. Exactly one closing event is
// emitted on sink: the answer, the question, or an error.
func (c *Controller) Handle(ctx context.Context, threadID, input string, sink ports.EventSink) (Reply, error) {
	return c.cycle(ctx, threadID, input, sink, false)
}

// Resume answers the thread's pending question. It fails with
// domain.ErrNoPendingSuspension, leaving the thread untouched, when nothing is pending.
func (c *Controller) Resume(ctx context.Context, threadID, value string, sink ports.EventSink) (Reply, error) {
	return c.cycle(ctx, threadID, value, sink, true)
}

// Pending returns the thread's checkpoint when it awaits an answer.
func (c *Controller) Pending(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	cp, err := c.manager.Store().Load(ctx, threadID)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		return nil, domain.ErrNoPendingSuspension
	}
	if err != nil {
		return nil, err
	}
	if !cp.Pending() {
		return nil, domain.ErrNoPendingSuspension
	}
	return cp, nil
}

// Inspect returns the thread's latest checkpoint, pending or completed.
func (c *Controller) Inspect(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	return c.manager.Store().Load(ctx, threadID)
}

func (c *Controller) cycle(ctx context.Context, threadID, input string, sink ports.EventSink, resumeOnly bool) (reply Reply, err error) {
	if c.observer != nil {
		defer func() { c.observer(ctx, threadID, reply, err) }()
	}
	if sink == nil {
		sink = ports.DiscardSink
	}
	clean, err := SanitizeInput(input)
	if err != nil {
		err = &InputError{Err: err}
		sink.Emit(ctx, domain.Event{Type: domain.EventError, Content: err.Error()})
		return Reply{}, err
	}

	ctx = graph.WithHooks(ctx, domain.ChainHooks(graph.HooksFrom(ctx), c.hooks))

	err = c.manager.TryLock(ctx, threadID, func(ctx context.Context) error {
		store := c.manager.Store()
		prev, err := store.Load(ctx, threadID)
		if err != nil && !errors.Is(err, domain.ErrCheckpointNotFound) {
			return fmt.Errorf("loading thread %s: %w", threadID, err)
		}

		var res graph.RunResult
		switch {
		case prev.Pending():
			c.logger.InfoContext(ctx, "Resuming thread", "thread_id", threadID, "version", prev.Version)
			res, err = c.graph.Resume(ctx, prev.Frames, clean)
		case resumeOnly:
			return domain.ErrNoPendingSuspension
		default:
			c.logger.InfoContext(ctx, "Starting run", "thread_id", threadID)
			res, err = c.graph.Run(ctx, c.initialState(prev, clean))
		}
		if err != nil {
			return err
		}

		reply, err = c.persist(ctx, threadID, prev, res)
		return err
	})

	switch {
	case errors.Is(err, domain.ErrThreadBusy):
		c.logger.WarnContext(ctx, "Rejected concurrent request", "thread_id", threadID)
		sink.Emit(ctx, domain.Event{Type: domain.EventError, Content: BusyText})
		return Reply{}, err
	case errors.Is(err, domain.ErrNoPendingSuspension):
		sink.Emit(ctx, domain.Event{Type: domain.EventError, Content: "There is no pending question to answer."})
		return Reply{}, err
	case err != nil:
		c.logger.ErrorContext(ctx, "Request failed", "thread_id", threadID, "err", err)
		sink.Emit(ctx, domain.Event{Type: domain.EventError, Content: "Something went wrong: " + err.Error()})
		return Reply{}, err
	}

	closing := domain.Event{Type: domain.EventAssistant, Content: reply.Text}
	if reply.IsError {
		closing.Type = domain.EventError
	}
	sink.Emit(ctx, closing)
	return reply, nil
}

func (c *Controller) initialState(prev *domain.Checkpoint, input string) domain.ExecutionState {
	var history []domain.Turn
	if root, ok := prev.Root(); ok {
		history = trimHistory(root.Turns, c.historyLimit)
	}
	return domain.NewState(append(history, domain.UserTurn(input))...)
}

// persist saves the run's outcome: the frame stack when suspended, otherwise
// a completed record superseding the thread's checkpoint.
func (c *Controller) persist(ctx context.Context, threadID string, prev *domain.Checkpoint, res graph.RunResult) (Reply, error) {
	now := c.now()
	cp := &domain.Checkpoint{
		ThreadID:  threadID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if prev != nil {
		cp.CreatedAt = prev.CreatedAt
		cp.Version = prev.Version + 1
	}

	reply := Reply{ThreadID: threadID, Version: cp.Version}
	if res.Suspended() {
		cp.Status = domain.CheckpointSuspended
		cp.Question = res.Question
		cp.Frames = res.Frames
		reply.Suspended = true
		reply.Text = res.Question
	} else {
		cp.Status = domain.CheckpointCompleted
		cp.Frames = []domain.Frame{{Graph: c.graph.Name(), Node: graph.End, State: res.State}}
		reply.Text, reply.IsError = res.State.FinalAnswer()
		if reply.Text == "" {
			reply.Text = "Done."
		}
	}

	if err := c.manager.Store().Save(ctx, threadID, cp); err != nil {
		return Reply{}, fmt.Errorf("saving thread %s: %w", threadID, err)
	}
	c.logger.InfoContext(ctx, "Run finished",
		"thread_id", threadID,
		"status", string(cp.Status),
		"steps", res.Steps,
		"version", cp.Version,
	)
	return reply, nil
}

// trimHistory keeps at most limit turns, starting on a user turn so no tool
// result is separated from the assistant turn that requested it.
func trimHistory(turns []domain.Turn, limit int) []domain.Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	cut := len(turns) - limit
	for cut < len(turns) && turns[cut].Kind != domain.TurnUser {
		cut++
	}
	return turns[cut:]
}
