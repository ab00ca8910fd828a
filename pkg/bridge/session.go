package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/jarvis/internal/logging"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

// Transport delivers events to one connected client.
type Transport interface {
	Send(ctx context.Context, ev domain.Event) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ev domain.Event) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

type config struct {
	logger *slog.Logger
}

// Option configures sessions and hubs.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) config {
	c := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

var _ ports.EventSink = (*Session)(nil)

// Session is one live client connection.
type Session struct {
	id        string
	queue     *Queue
	transport Transport
	logger    *slog.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSession creates a session; Start begins draining.
func NewSession(id string, t Transport, opts ...Option) *Session {
	c := newConfig(opts)
	return &Session{
		id:        id,
		queue:     NewQueue(),
		transport: t,
		logger:    c.logger,
		cancel:    func() {},
		done:      make(chan struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Start launches the drain goroutine. It runs until Stop, ctx ends, or the
// transport fails.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.drain(ctx)
	})
}

func (s *Session) drain(ctx context.Context) {
	defer close(s.done)
	defer s.queue.Close()

	for {
		ev, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}
		if err := s.transport.Send(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Transport send failed, stopping session", "session_id", s.id, "err", err)
			return
		}
	}
}

// Emit queues ev for delivery. It never blocks; events emitted after the
// session stopped are dropped.
func (s *Session) Emit(ctx context.Context, ev domain.Event) {
	if !s.queue.Push(ev) {
		s.logger.DebugContext(ctx, "Dropped event for stopped session", "session_id", s.id, "type", string(ev.Type))
	}
}

// Stop ends the drain and waits for it. Queued events are discarded.
func (s *Session) Stop() {
	s.queue.Close()
	// Synchronizes with Start, so cancel is safe to read afterwards.
	s.startOnce.Do(func() { close(s.done) })
	s.cancel()
	<-s.done
}

// Done is closed once the drain goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Hooks turns engine lifecycle callbacks into node events on this session.
func (s *Session) Hooks() domain.LifecycleHooks {
	return ProgressHooks(s)
}

// ProgressHooks turns engine lifecycle callbacks into node events on sink.
func ProgressHooks(sink ports.EventSink) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			sink.Emit(ctx, domain.Event{Type: domain.EventNode, Content: fmt.Sprintf("%s: %s", e.Graph, e.NodeID)})
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			sink.Emit(ctx, domain.Event{Type: domain.EventNode, Content: fmt.Sprintf("%s: calling %s", e.Graph, e.Invocation.Name)})
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			status := "ok"
			if e.Result != nil && e.Result.Kind == domain.ResultError {
				status = "failed"
			}
			sink.Emit(ctx, domain.Event{Type: domain.EventNode, Content: fmt.Sprintf("%s: %s %s", e.Graph, e.Invocation.Name, status)})
		},
	}
}
