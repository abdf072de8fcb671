package services

import (
	"context"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
)

// Capacity is a remaining weight/volume budget.
type Capacity struct {
	WeightKg float64
	VolumeM3 float64
}

// RemainingCapacity subtracts a derived load from the vehicle's static capacity.
func RemainingCapacity(v domain.Vehicle, load domain.Load) Capacity {
	return Capacity{
		WeightKg: v.WeightCapacityKg - load.WeightKg,
		VolumeM3: v.VolumeCapacityM3 - load.VolumeM3,
	}
}

// Fits reports whether a package of the given size fits in both dimensions.
func (c Capacity) Fits(weightKg, volumeM3 float64) bool {
	return weightKg <= c.WeightKg && volumeM3 <= c.VolumeM3
}

// CapacityLedger derives remaining capacity from the vehicle directory.
// Nothing is cached: every call re-reads the current load.
type CapacityLedger struct {
	Vehicles ports.VehicleDirectory
}

func (l CapacityLedger) Remaining(ctx context.Context, v domain.Vehicle) (Capacity, error) {
	load, err := l.Vehicles.CurrentLoad(ctx, v.ID)
	if err != nil {
		return Capacity{}, fmt.Errorf("remaining capacity: vehicle %s: %w", v.ID, err)
	}
	return RemainingCapacity(v, load), nil
}

func (l CapacityLedger) Fits(ctx context.Context, v domain.Vehicle, pkg domain.Package) (bool, error) {
	remaining, err := l.Remaining(ctx, v)
	if err != nil {
		return false, err
	}
	return remaining.Fits(pkg.WeightKg, pkg.VolumeM3), nil
}
