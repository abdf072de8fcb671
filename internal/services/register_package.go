package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parcel-dispatch-service/internal/domain"
	"strings"
)

// ErrInvalidPackage wraps validation failures on package registration.
var ErrInvalidPackage = errors.New("invalid package")

type RegisterPackageInput struct {
	OriginAddress      string
	DestinationAddress string
	Origin             *domain.Coordinates
	Destination        *domain.Coordinates
	Contents           string
	WeightKg           float64
	LengthCm           float64
	WidthCm            float64
	HeightCm           float64
	// Nil when the registration is system-initiated.
	ActorID *string
}

func (in RegisterPackageInput) validate() error {
	if strings.TrimSpace(in.OriginAddress) == "" || strings.TrimSpace(in.DestinationAddress) == "" {
		return fmt.Errorf("%w: origin and destination addresses are required", ErrInvalidPackage)
	}
	if in.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidPackage)
	}
	if in.LengthCm <= 0 || in.WidthCm <= 0 || in.HeightCm <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidPackage)
	}
	for _, c := range []*domain.Coordinates{in.Origin, in.Destination} {
		if c != nil && !c.Valid() {
			return fmt.Errorf("%w: coordinates out of range", ErrInvalidPackage)
		}
	}
	return nil
}

// RegisterPackage stores a new package in the registered state and runs
// assignment on it before returning. An unassigned outcome is not an error.
func (e *Engine) RegisterPackage(ctx context.Context, in RegisterPackageInput) (domain.Package, Assignment, error) {
	if err := in.validate(); err != nil {
		return domain.Package{}, Assignment{}, err
	}

	now := e.now()
	pkg, err := e.packages.CreatePackage(ctx, domain.Package{
		TrackingCode:       domain.NewTrackingCode(now),
		OriginAddress:      strings.TrimSpace(in.OriginAddress),
		DestinationAddress: strings.TrimSpace(in.DestinationAddress),
		Origin:             in.Origin,
		Destination:        in.Destination,
		Contents:           in.Contents,
		WeightKg:           in.WeightKg,
		VolumeM3:           domain.VolumeFromDimensionsCm(in.LengthCm, in.WidthCm, in.HeightCm),
		Status:             domain.PackageStatusRegistered,
		CreatedAt:          now,
	})
	if err != nil {
		return domain.Package{}, Assignment{}, fmt.Errorf("register package: create: %w", err)
	}

	err = e.packages.UpdateStatus(ctx, domain.StatusEntry{
		PackageID: pkg.ID,
		Status:    domain.PackageStatusRegistered,
		ActorID:   in.ActorID,
		Note:      "Package registered in the system",
		At:        now,
	})
	if err != nil {
		return domain.Package{}, Assignment{}, fmt.Errorf("register package %s: status: %w", pkg.ID, err)
	}

	a, err := e.AssignPackage(ctx, pkg.ID)
	if err != nil {
		return domain.Package{}, Assignment{}, fmt.Errorf("register package %s: %w", pkg.ID, err)
	}
	if a.Assigned() {
		log.Printf("op=register package_id=%s tracking=%s vehicle_id=%s", pkg.ID, pkg.TrackingCode, a.VehicleID)
	}

	stored, err := e.packages.GetPackage(ctx, pkg.ID)
	if err != nil {
		return domain.Package{}, Assignment{}, fmt.Errorf("register package %s: reload: %w", pkg.ID, err)
	}
	return stored, a, nil
}
