package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: a boundary for reading and updating packages.
type PackageStore interface {
	CreatePackage(ctx context.Context, pkg domain.Package) (domain.Package, error)
	GetPackage(ctx context.Context, id string) (domain.Package, error)
	// Persist geocoded coordinates. Nil arguments leave the stored value unchanged.
	UpdateCoordinates(ctx context.Context, id string, origin, destination *domain.Coordinates) error
	SetDepots(ctx context.Context, id string, originDepotID, destinationDepotID *string) error
	SetAssignedVehicle(ctx context.Context, id string, vehicleID string) error
	// Change the package status and append a history entry in one step.
	UpdateStatus(ctx context.Context, entry domain.StatusEntry) error
	// Set the assigned vehicle together with the status change and its
	// history entry. Either all of it is stored or none of it.
	AssignVehicle(ctx context.Context, vehicleID string, entry domain.StatusEntry) error
	ListStatusHistory(ctx context.Context, id string) ([]domain.StatusEntry, error)
}
