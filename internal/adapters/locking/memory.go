// Package locking implements the vehicle lock port for one process (MemoryLocker),
// for many processes sharing Redis (RedisLocker), and for many processes sharing
// Postgres (PostgresLocker).
package locking

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a lock could not be acquired in time.
var ErrLockTimeout = errors.New("vehicle lock: timed out waiting for lock")

// MemoryLocker serializes work per vehicle inside one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) WithVehicleLock(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error {
	k := l.acquireRef(vehicleID)
	defer l.releaseRef(vehicleID)

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-k.ch }()

	return fn(ctx)
}

func (l *MemoryLocker) acquireRef(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.locks[key]
	if !ok {
		k = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = k
	}
	k.refs++
	return k
}

// releaseRef drops the entry once no goroutine holds or waits on it.
func (l *MemoryLocker) releaseRef(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.locks[key]
	k.refs--
	if k.refs == 0 {
		delete(l.locks, key)
	}
}
