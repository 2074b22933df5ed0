package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

const lockKeyPrefix = "admissions:lock:engagement:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the key's expiry only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// LockOptions tunes acquisition. TTL bounds how long a crashed holder can
// block others; a live holder renews it every TTL/3. Wait bounds how long a
// caller queues.
type LockOptions struct {
	TTL   time.Duration
	Wait  time.Duration
	Retry time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.Wait < 0 {
		o.Wait = 0
	}
	if o.Retry <= 0 {
		o.Retry = 50 * time.Millisecond
	}
	return o
}

// Release unlocks a held engagement lock.
type Release func(ctx context.Context) error

// RedisLockRepository serialises writers per engagement across replicas.
type RedisLockRepository struct {
	client redis.UniversalClient
	opts   LockOptions
}

// NewRedisLockRepository constructs a Redis-backed locker.
func NewRedisLockRepository(client redis.UniversalClient, opts LockOptions) *RedisLockRepository {
	return &RedisLockRepository{client: client, opts: opts.withDefaults()}
}

// Acquire blocks until the engagement lock is held, the wait budget is spent
// (ErrLocked) or ctx ends.
func (r *RedisLockRepository) Acquire(ctx context.Context, engagementID string) (Release, error) {
	key := lockKeyPrefix + engagementID
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.Wait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, appErrors.Unavailable(err, "engagement lock store unavailable")
		}
		if ok {
			stop := keepAlive(r.opts.TTL/3, func(ctx context.Context) (bool, error) {
				held, err := refreshScript.Run(ctx, r.client, []string{key}, token, r.opts.TTL.Milliseconds()).Int()
				return held == 1, err
			})
			return func(ctx context.Context) error {
				stop()
				if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					return appErrors.Unavailable(err, "release engagement lock")
				}
				return nil
			}, nil
		}
		if err := waitRetry(ctx, deadline, r.opts.Retry); err != nil {
			return nil, err
		}
	}
}

// keepAlive calls refresh every interval until stop is called or refresh
// reports the lease is no longer ours. Transient refresh errors are retried on
// the next tick; the lease still expires on its own if they persist.
func keepAlive(interval time.Duration, refresh func(ctx context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				held, err := refresh(ctx)
				cancel()
				if err == nil && !held {
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// MemoryLockRepository is the single-process locker used when no Redis is
// configured.
type MemoryLockRepository struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	opts LockOptions
}

// NewMemoryLockRepository constructs an in-process locker.
func NewMemoryLockRepository(opts LockOptions) *MemoryLockRepository {
	return &MemoryLockRepository{held: make(map[string]chan struct{}), opts: opts.withDefaults()}
}

// Acquire waits for the engagement's lock within the wait budget.
func (r *MemoryLockRepository) Acquire(ctx context.Context, engagementID string) (Release, error) {
	deadline := time.Now().Add(r.opts.Wait)
	for {
		r.mu.Lock()
		done, busy := r.held[engagementID]
		if !busy {
			mine := make(chan struct{})
			r.held[engagementID] = mine
			r.mu.Unlock()
			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					r.mu.Lock()
					if r.held[engagementID] == mine {
						delete(r.held, engagementID)
					}
					r.mu.Unlock()
					close(mine)
				})
				return nil
			}, nil
		}
		r.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, appErrors.ErrLocked
		}
		timer := time.NewTimer(remaining)
		select {
		case <-done:
			timer.Stop()
		case <-timer.C:
			return nil, appErrors.ErrLocked
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func waitRetry(ctx context.Context, deadline time.Time, retry time.Duration) error {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return appErrors.ErrLocked
	}
	if retry > remaining {
		retry = remaining
	}
	timer := time.NewTimer(retry)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
