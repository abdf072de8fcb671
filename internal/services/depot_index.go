package services

import (
	"context"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"sync"
)

// DepotIndex resolves depot ids to depots, seeded with the active set and
// falling back to the directory for inactive depots still referenced by stops.
type DepotIndex struct {
	dir ports.DepotDirectory

	mu   sync.Mutex
	byID map[string]domain.Depot
}

func NewDepotIndex(dir ports.DepotDirectory, active []domain.Depot) *DepotIndex {
	byID := make(map[string]domain.Depot, len(active))
	for _, d := range active {
		byID[d.ID] = d
	}
	return &DepotIndex{dir: dir, byID: byID}
}

func (x *DepotIndex) Get(ctx context.Context, id string) (domain.Depot, error) {
	x.mu.Lock()
	d, ok := x.byID[id]
	x.mu.Unlock()
	if ok {
		return d, nil
	}

	d, err := x.dir.GetDepot(ctx, id)
	if err != nil {
		return domain.Depot{}, fmt.Errorf("depot %s: %w", id, err)
	}

	x.mu.Lock()
	x.byID[id] = d
	x.mu.Unlock()

	return d, nil
}

func (x *DepotIndex) StopPoints(ctx context.Context, stops []domain.RouteStop) ([]StopPoint, error) {
	out := make([]StopPoint, 0, len(stops))
	for _, s := range stops {
		d, err := x.Get(ctx, s.DepotID)
		if err != nil {
			return nil, err
		}
		out = append(out, StopPoint{DepotID: d.ID, Location: d.Location})
	}
	return out, nil
}
