package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/jarvis/internal/logging"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a thread.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates thread access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.CheckpointStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given checkpoint store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(threadID) after unlocking.
func (m *Manager) acquire(threadID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		entry = &lockEntry{}
		m.locks[threadID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, threadID)
	}
}

// Load retrieves a thread's checkpoint.
func (m *Manager) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	var cp *domain.Checkpoint
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		cp, err = m.store.Load(ctx, threadID)
		return err
	})
	return cp, err
}

// Save persists a checkpoint.
func (m *Manager) Save(ctx context.Context, threadID string, cp *domain.Checkpoint) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		return m.store.Save(ctx, threadID, cp)
	})
}

// Delete removes a thread.
func (m *Manager) Delete(ctx context.Context, threadID string) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		return m.store.Delete(ctx, threadID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

// WithLock executes fn while holding the thread's lock, waiting for it if needed.
func (m *Manager) WithLock(ctx context.Context, threadID string, fn func(context.Context) error) error {
	entry := m.acquire(threadID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(threadID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, threadID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer m.unlock(ctx, threadID, unlock)
	}

	return fn(ctx)
}

// TryLock executes fn holding the thread's lock, or returns
// domain.ErrThreadBusy at once when another caller holds it.
func (m *Manager) TryLock(ctx context.Context, threadID string, fn func(context.Context) error) error {
	entry := m.acquire(threadID)
	defer m.release(threadID)
	if !entry.mu.TryLock() {
		return domain.ErrThreadBusy
	}
	defer entry.mu.Unlock()

	if m.locker != nil {
		unlock, err := m.locker.TryLock(ctx, threadID, m.lockTTL)
		if errors.Is(err, ports.ErrLockHeld) {
			return domain.ErrThreadBusy
		}
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer m.unlock(ctx, threadID, unlock)
	}

	return fn(ctx)
}

func (m *Manager) unlock(ctx context.Context, threadID string, unlock ports.UnlockFunc) {
	// The run may have been canceled; the lock must still be released.
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
			"thread_id", threadID,
			"err", err,
		)
	}
}
