package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: a boundary for reading fleet data.
type VehicleDirectory interface {
	// List vehicles whose status is available, fleet-wide, in a stable order.
	ListAvailableVehicles(ctx context.Context) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (domain.Vehicle, error)
	// Sum weight and volume of packages assigned to the vehicle whose
	// status is not terminal.
	CurrentLoad(ctx context.Context, vehicleID string) (domain.Load, error)
}
