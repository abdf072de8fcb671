package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: a boundary for reading the depot network.
type DepotDirectory interface {
	// List active depots in a stable order. Ties in nearest-depot
	// resolution go to the depot listed first.
	ListActiveDepots(ctx context.Context) ([]domain.Depot, error)
	GetDepot(ctx context.Context, id string) (domain.Depot, error)
}
