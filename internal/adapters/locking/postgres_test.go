package locking

import (
	"context"
	"os"
	"parcel-dispatch-service/internal/platform/db"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLocker(t *testing.T) *PostgresLocker {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := db.Open(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewPostgresLocker(conn.DB)
}

func TestPostgresLockerSerializesSameVehicle(t *testing.T) {
	l := openTestLocker(t)
	vehicleID := "veh-" + uuid.NewString()[:8]

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
		runs    atomic.Int32
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithVehicleLock(context.Background(), vehicleID, func(ctx context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(50 * time.Millisecond)
				inside.Add(-1)
				runs.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "two holders ran at once")
	assert.Equal(t, int32(4), runs.Load())
}

func TestPostgresLockerDoesNotBlockOtherVehicles(t *testing.T) {
	l := openTestLocker(t)
	sfx := uuid.NewString()[:8]

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithVehicleLock(context.Background(), "veh-a-"+sfx, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	called := false
	err := l.WithVehicleLock(ctx, "veh-b-"+sfx, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestPostgresLockerReleasesOnCallbackError(t *testing.T) {
	l := openTestLocker(t)
	vehicleID := "veh-" + uuid.NewString()[:8]

	err := l.WithVehicleLock(context.Background(), vehicleID, func(ctx context.Context) error {
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.WithVehicleLock(ctx, vehicleID, func(ctx context.Context) error { return nil }))
}
