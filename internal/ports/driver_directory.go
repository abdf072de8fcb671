package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: a boundary for resolving who drives a vehicle.
type DriverDirectory interface {
	// Return the active driver bound to the vehicle, or domain.ErrNotFound.
	ActiveDriverForVehicle(ctx context.Context, vehicleID string) (domain.Driver, error)
}
