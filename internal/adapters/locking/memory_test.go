package locking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLockerSerializesSameVehicle(t *testing.T) {
	l := NewMemoryLocker()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithVehicleLock(context.Background(), "v1", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if len(l.locks) != 0 {
		t.Fatalf("lock table size = %d, want 0 after all holders released", len(l.locks))
	}
}

func TestMemoryLockerDistinctVehiclesDoNotBlock(t *testing.T) {
	l := NewMemoryLocker()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithVehicleLock(context.Background(), "v1", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.WithVehicleLock(ctx, "v2", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("lock on other vehicle: %v", err)
	}
}

func TestMemoryLockerHonoursContextWhileWaiting(t *testing.T) {
	l := NewMemoryLocker()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithVehicleLock(context.Background(), "v1", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithVehicleLock(ctx, "v1", func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
