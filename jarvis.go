package jarvis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/jarvis/pkg/adapters/memory"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/aretw0/jarvis/pkg/session"
)

// Version is the release of this build. It is overridden at link time.
var Version = "0.1.0-dev"

// Engine is the high-level entry point of the library: the main agent graph,
// its capability registry and the controller running threads against it.
type Engine struct {
	graph      *graph.Graph
	registry   *registry.Registry
	manager    *session.Manager
	controller *session.Controller
	services   capabilities.Services
}

type settings struct {
	services          *capabilities.Services
	store             ports.CheckpointStore
	locker            ports.DistributedLocker
	lockTTL           time.Duration
	enabled           ports.EnabledSource
	hooks             domain.LifecycleHooks
	observer          session.RunObserver
	historyLimit      int
	maxIterations     int
	oracleTimeout     time.Duration
	capabilityTimeout time.Duration
	logger            *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*settings)

// WithServices sets the backends of the built-in capabilities. The default is
// in-memory core memory, episodic memory, journal and calendar, without a
// mailbox or web search.
func WithServices(svc capabilities.Services) Option {
	return func(s *settings) {
		s.services = &svc
	}
}

// WithStore sets the checkpoint store. The default keeps threads in memory.
func WithStore(store ports.CheckpointStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithLocker enables distributed thread locks with the given expiry.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *settings) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithEnabledSource sets the capability enable map, keyed by configuration key.
func WithEnabledSource(src ports.EnabledSource) Option {
	return func(s *settings) {
		s.enabled = src
	}
}

// WithLifecycleHooks registers observability hooks on every run.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithRunObserver is told the outcome of every request.
func WithRunObserver(o session.RunObserver) Option {
	return func(s *settings) {
		s.observer = o
	}
}

// WithHistoryLimit bounds the turns a thread carries into its next run.
func WithHistoryLimit(n int) Option {
	return func(s *settings) {
		s.historyLimit = n
	}
}

// WithMaxIterations sets the decision-cycle ceiling of each agent.
func WithMaxIterations(n int) Option {
	return func(s *settings) {
		s.maxIterations = n
	}
}

// WithTimeouts bounds oracle calls and capability invocations. Zero keeps a default.
func WithTimeouts(oracle, capability time.Duration) Option {
	return func(s *settings) {
		s.oracleTimeout = oracle
		s.capabilityTimeout = capability
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New assembles the main agent around oracle.
func New(oracle ports.Oracle, opts ...Option) (*Engine, error) {
	if oracle == nil {
		return nil, errors.New("jarvis: oracle is required")
	}
	s := settings{
		historyLimit: session.DefaultHistoryLimit,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&s)
	}
	var svc capabilities.Services
	if s.services != nil {
		svc = *s.services
	} else {
		memories, err := memory.NewMemories()
		if err != nil {
			return nil, err
		}
		svc = capabilities.Services{
			Profiles: memory.NewProfiles(),
			Journal:  memory.NewJournal(),
			Calendar: memory.NewCalendar(),
			Memories: memories,
		}
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	g, reg, err := capabilities.Assemble(oracle, svc, capabilities.Config{
		MaxIterations:     s.maxIterations,
		OracleTimeout:     s.oracleTimeout,
		CapabilityTimeout: s.capabilityTimeout,
		Enabled:           s.enabled,
		Logger:            s.logger,
	})
	if err != nil {
		return nil, err
	}

	managerOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(s.locker), session.WithLockTTL(s.lockTTL))
	}
	manager := session.NewManager(s.store, managerOpts...)

	controllerOpts := []session.ControllerOption{
		session.WithHooks(s.hooks),
		session.WithHistoryLimit(s.historyLimit),
		session.WithControllerLogger(s.logger),
	}
	if s.observer != nil {
		controllerOpts = append(controllerOpts, session.WithRunObserver(s.observer))
	}

	return &Engine{
		graph:      g,
		registry:   reg,
		manager:    manager,
		controller: session.NewController(g, manager, controllerOpts...),
		services:   svc,
	}, nil
}

// Handle processes one message on a thread. See session.Controller.Handle.
func (e *Engine) Handle(ctx context.Context, threadID, input string, sink ports.EventSink) (session.Reply, error) {
	return e.controller.Handle(ctx, threadID, input, sink)
}

// Resume answers the thread's pending question.
func (e *Engine) Resume(ctx context.Context, threadID, value string, sink ports.EventSink) (session.Reply, error) {
	return e.controller.Resume(ctx, threadID, value, sink)
}

// Pending returns the thread's checkpoint when it awaits an answer.
func (e *Engine) Pending(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	return e.controller.Pending(ctx, threadID)
}

// Graph returns the compiled main agent.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Registry returns the main agent's capability registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Manager returns the thread manager.
func (e *Engine) Manager() *session.Manager { return e.manager }

// Controller returns the request controller, for transports.
func (e *Engine) Controller() *session.Controller { return e.controller }

// Services returns the capability backends in use.
func (e *Engine) Services() capabilities.Services { return e.services }
