package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/jarvis/internal/logging"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// lockPoll is the retry interval of a blocking Lock.
const lockPoll = 100 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// renewScript extends the lock only while it still holds our token.
var renewScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

var _ ports.DistributedLocker = (*Locker)(nil)

// Locker implements ports.DistributedLocker using Redis SET NX PX.
// A held lock is renewed every ttl/3 until released, so the ttl only bounds
// how long a crashed holder blocks the key, not how long a run may take.
type Locker struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithLockerLogger reports renewal failures to logger.
func WithLockerLogger(logger *slog.Logger) LockerOption {
	return func(l *Locker) {
		l.logger = logger
	}
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client: client,
		prefix: prefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) key(key string) string {
	return l.prefix + "lock:" + key
}

// TryLock makes a single attempt to take the lock.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.key(key)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return nil, ports.ErrLockHeld
	}

	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(renewCtx, lockKey, token, ttl)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			stop()
			<-done
		})
		return releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
	}, nil
}

// keepAlive pushes the expiry forward until ctx ends or the lock is lost.
func (l *Locker) keepAlive(ctx context.Context, lockKey, token string, ttl time.Duration) {
	interval := ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := renewScript.Run(ctx, l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			l.logger.WarnContext(ctx, "Failed to renew distributed lock", "key", lockKey, "err", err)
		case n == 0:
			l.logger.WarnContext(ctx, "Distributed lock lost before release", "key", lockKey)
			return
		}
	}
}

// Lock polls until the lock is taken or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	ticker := time.NewTicker(lockPoll)
	defer ticker.Stop()

	for {
		unlock, err := l.TryLock(ctx, key, ttl)
		if err == nil {
			return unlock, nil
		}
		if err != ports.ErrLockHeld {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
