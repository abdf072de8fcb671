package ports

import "context"

// Port: serializes read-decide-write sequences per vehicle.
//
// Implementations run fn while holding an exclusive lock on the vehicle.
// Route mutations for a vehicle's routes also run under this lock.
type VehicleLocker interface {
	WithVehicleLock(ctx context.Context, vehicleID string, fn func(ctx context.Context) error) error
}
