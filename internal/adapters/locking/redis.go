package locking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// ErrLockLost is the cancellation cause seen by fn when the key expired or
// was taken over while fn was still running.
var ErrLockLost = errors.New("vehicle lock: lost while held")

// RedisLocker holds vehicle locks as Redis keys set with NX and a TTL.
// The TTL bounds how long a crashed holder can block a vehicle. While fn runs
// the key is refreshed every ttl/3, and fn's context is cancelled with
// ErrLockLost if a refresh finds the key gone.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

type RedisOption func(*RedisLocker)

// WithMaxWait bounds how long WithVehicleLock waits before ErrLockTimeout.
func WithMaxWait(d time.Duration) RedisOption { return func(l *RedisLocker) { l.wait = d } }

func WithPollInterval(d time.Duration) RedisOption { return func(l *RedisLocker) { l.poll = d } }

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: "dispatch:vehicle-lock:",
		ttl:    ttl,
		wait:   10 * time.Second,
		poll:   25 * time.Millisecond,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) WithVehicleLock(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error {
	key := l.prefix + vehicleID
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return fmt.Errorf("redis lock vehicle=%s: %w", vehicleID, err)
	}
	defer func() {
		// Release even when ctx was cancelled mid-flight.
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err(); err != nil {
			log.Printf("op=lock.release backend=redis vehicle_id=%s err=%v", vehicleID, err)
		}
	}()

	lockCtx, cancel := context.WithCancelCause(ctx)
	stop := l.keepAlive(lockCtx, cancel, key, token, vehicleID)
	defer stop()

	return fn(lockCtx)
}

// keepAlive refreshes the key until stop is called or the lock is lost.
func (l *RedisLocker) keepAlive(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	key, token, vehicleID string,
) (stop func()) {
	interval := l.ttl / 3
	if interval <= 0 {
		return func() { cancel(nil) }
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				log.Printf("op=lock.extend backend=redis vehicle_id=%s err=%v", vehicleID, err)
				continue
			}
			if n == 0 {
				log.Printf("op=lock.extend backend=redis vehicle_id=%s err=%v", vehicleID, ErrLockLost)
				cancel(ErrLockLost)
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("set nx: %w", err)
		}
		if ok {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
