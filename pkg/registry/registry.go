package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// DefaultTimeout bounds an invocation whose descriptor sets none.
const DefaultTimeout = 30 * time.Second

// Func defines the signature for a capability implementation.
// A returned error is reported to the oracle as a failed result, except a
// *graph.SuspendError which the dispatcher turns into a suspension.
type Func func(ctx context.Context, args map[string]any) (domain.Result, error)

// Capability is a named callable with its descriptor.
type Capability struct {
	Descriptor domain.CapabilityDescriptor
	Invoke     Func
}

// Registry manages the available capabilities.
// It is read-mostly: dispatch takes the read lock, reloads swap under the write lock.
type Registry struct {
	mu      sync.RWMutex
	caps    map[string]Capability
	order   []string
	enabled ports.EnabledSource
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithEnabledSource consults src on every descriptor listing and invocation.
func WithEnabledSource(src ports.EnabledSource) Option {
	return func(r *Registry) {
		r.enabled = src
	}
}

// WithTimeout sets the default invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a new empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		caps:    make(map[string]Capability),
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a capability to the registry.
// If a capability with the same name exists, it is overwritten.
func (r *Registry) Register(c Capability) error {
	if c.Descriptor.Name == "" {
		return errors.New("capability name is empty")
	}
	if c.Invoke == nil {
		return fmt.Errorf("capability %s: nil function", c.Descriptor.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.caps[c.Descriptor.Name]; !ok {
		r.order = append(r.order, c.Descriptor.Name)
	}
	r.caps[c.Descriptor.Name] = c
	return nil
}

// MustRegister is Register for static wiring; it panics on a bad capability.
func (r *Registry) MustRegister(caps ...Capability) *Registry {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Unregister removes a capability. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.caps[name]; !ok {
		return
	}
	delete(r.caps, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Replace swaps the whole capability set at once. Last write wins.
func (r *Registry) Replace(caps ...Capability) error {
	next := make(map[string]Capability, len(caps))
	order := make([]string, 0, len(caps))
	for _, c := range caps {
		if c.Descriptor.Name == "" || c.Invoke == nil {
			return fmt.Errorf("invalid capability %q", c.Descriptor.Name)
		}
		if _, dup := next[c.Descriptor.Name]; !dup {
			order = append(order, c.Descriptor.Name)
		}
		next[c.Descriptor.Name] = c
	}
	r.mu.Lock()
	r.caps, r.order = next, order
	r.mu.Unlock()
	r.logger.Info("Capabilities reloaded", "count", len(order))
	return nil
}

// Lookup returns a capability by name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// IsEnabled reports whether name is registered and enabled.
func (r *Registry) IsEnabled(name string) bool {
	if _, ok := r.Lookup(name); !ok {
		return false
	}
	return r.enabled == nil || r.enabled.IsEnabled(name)
}

// All lists every registered descriptor with its current Enabled flag.
func (r *Registry) All() []domain.CapabilityDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CapabilityDescriptor, 0, len(r.order))
	for _, name := range r.order {
		d := r.caps[name].Descriptor
		d.Enabled = r.enabled == nil || r.enabled.IsEnabled(name)
		out = append(out, d)
	}
	return out
}

// Descriptors regenerates the list offered to the oracle: enabled only,
// in registration order.
func (r *Registry) Descriptors() []domain.CapabilityDescriptor {
	all := r.All()
	out := all[:0]
	for _, d := range all {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Invoke runs one invocation under a bounded timeout.
// Failures of any kind (unknown, disabled, error, panic, timeout) come back as
// a domain.ResultError; only a nested suspension is returned as an error.
func (r *Registry) Invoke(ctx context.Context, inv domain.Invocation) (domain.Result, error) {
	c, ok := r.Lookup(inv.Name)
	if !ok {
		return domain.Failure(fmt.Sprintf("%v: %s", domain.ErrCapabilityNotFound, inv.Name)), nil
	}
	if r.enabled != nil && !r.enabled.IsEnabled(inv.Name) {
		return domain.Failure(fmt.Sprintf("%v: %s", domain.ErrCapabilityDisabled, inv.Name)), nil
	}

	timeout := r.timeout
	if c.Descriptor.Timeout > 0 {
		timeout = c.Descriptor.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		res domain.Result
		err error
	)
	if c.Descriptor.Async {
		res, err = r.invokeAsync(ctx, c, inv)
	} else {
		res, err = r.safeCall(ctx, inv.Name, c.Invoke, inv.Args)
		if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
	}

	var suspend *graph.SuspendError
	switch {
	case errors.As(err, &suspend):
		return domain.Result{}, suspend
	case errors.Is(err, context.DeadlineExceeded):
		r.logger.WarnContext(ctx, "Capability timed out", "capability", inv.Name, "timeout", timeout)
		return domain.Failure(fmt.Sprintf("%s timed out after %s", inv.Name, timeout)), nil
	case err != nil:
		r.logger.WarnContext(ctx, "Capability failed", "capability", inv.Name, "error", err)
		return domain.Failure(err.Error()), nil
	}
	return res, nil
}

func (r *Registry) invokeAsync(ctx context.Context, c Capability, inv domain.Invocation) (domain.Result, error) {
	type outcome struct {
		res domain.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.safeCall(ctx, inv.Name, c.Invoke, inv.Args)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

func (r *Registry) safeCall(ctx context.Context, name string, fn Func, args map[string]any) (res domain.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "Capability panicked", "capability", name, "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("capability panicked: %v", p)
		}
	}()
	return fn(ctx, args)
}

// DecodeArgs decodes oracle arguments into a struct tagged with `mapstructure`.
// Numbers given as strings (and the reverse) are accepted.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
