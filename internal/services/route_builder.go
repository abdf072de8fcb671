package services

import (
	"context"
	"errors"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"time"
)

// ErrNoDriver is returned when a vehicle has no active driver to run a new route.
var ErrNoDriver = errors.New("no active driver for vehicle")

// RouteBuilder creates and extends routes. It owns Route, RouteStop and
// RoutePackage writes.
type RouteBuilder struct {
	Routes    ports.RouteStore
	Drivers   ports.DriverDirectory
	Sequencer StopSequencer
	Now       func() time.Time
}

// CreateRoute opens a route for vehicle on serviceDate carrying one package.
// The origin stop gets order 1 and, for distinct depots, the destination order 2.
func (b RouteBuilder) CreateRoute(
	ctx context.Context,
	vehicle domain.Vehicle,
	serviceDate string,
	packageID string,
	pair DepotPair,
) (domain.Route, error) {
	driver, err := b.Drivers.ActiveDriverForVehicle(ctx, vehicle.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Route{}, fmt.Errorf("create route: vehicle %s: %w", vehicle.ID, ErrNoDriver)
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route: vehicle %s: find driver: %w", vehicle.ID, err)
	}

	route, err := b.Routes.CreateRoute(ctx, domain.Route{
		VehicleID:   vehicle.ID,
		DriverID:    driver.ID,
		ServiceDate: serviceDate,
		Status:      domain.RouteStatusPending,
		CreatedAt:   b.Now(),
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route: vehicle %s: %w", vehicle.ID, err)
	}

	pickup, err := b.Routes.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: pair.Origin.ID, Order: 1})
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route %s: add origin stop: %w", route.ID, err)
	}

	dropoff := pickup
	if !pair.SameDepot() {
		dropoff, err = b.Routes.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: pair.Destination.ID, Order: 2})
		if err != nil {
			return domain.Route{}, fmt.Errorf("create route %s: add destination stop: %w", route.ID, err)
		}
	}

	if err := b.link(ctx, route.ID, packageID, pickup, dropoff); err != nil {
		return domain.Route{}, fmt.Errorf("create route %s: %w", route.ID, err)
	}

	return route, nil
}

// ExtendRoute adds a package to a pending route, reusing stops where possible,
// then resequences the route from anchor.
//
// The pickup reuses the first stop at the origin depot. The dropoff reuses a
// stop at the destination depot only when it comes after the pickup, so the
// stored order always satisfies every package's precedence.
func (b RouteBuilder) ExtendRoute(
	ctx context.Context,
	route domain.Route,
	packageID string,
	pair DepotPair,
	anchor *domain.Coordinates,
) error {
	if !route.IsPending() {
		return fmt.Errorf("extend route %s: %w", route.ID, domain.ErrRouteNotPending)
	}

	stops, err := b.Routes.ListStops(ctx, route.ID)
	if err != nil {
		return fmt.Errorf("extend route %s: list stops: %w", route.ID, err)
	}

	nextOrder := 1
	for _, s := range stops {
		if s.Order >= nextOrder {
			nextOrder = s.Order + 1
		}
	}

	pickup, found := firstStopAt(stops, pair.Origin.ID, 0)
	if !found {
		pickup, err = b.Routes.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: pair.Origin.ID, Order: nextOrder})
		if err != nil {
			return fmt.Errorf("extend route %s: add origin stop: %w", route.ID, err)
		}
		nextOrder++
	}

	dropoff := pickup
	if !pair.SameDepot() {
		dropoff, found = firstStopAt(stops, pair.Destination.ID, pickup.Order+1)
		if !found {
			dropoff, err = b.Routes.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: pair.Destination.ID, Order: nextOrder})
			if err != nil {
				return fmt.Errorf("extend route %s: add destination stop: %w", route.ID, err)
			}
		}
	}

	if err := b.link(ctx, route.ID, packageID, pickup, dropoff); err != nil {
		return fmt.Errorf("extend route %s: %w", route.ID, err)
	}

	if _, err := b.Sequencer.Resequence(ctx, route.ID, anchor); err != nil {
		return fmt.Errorf("extend route %s: %w", route.ID, err)
	}

	return nil
}

func (b RouteBuilder) link(ctx context.Context, routeID, packageID string, pickup, dropoff domain.RouteStop) error {
	err := b.Routes.LinkPackage(ctx, domain.RoutePackage{
		RouteID:       routeID,
		PackageID:     packageID,
		PickupStopID:  pickup.ID,
		DropoffStopID: dropoff.ID,
	})
	if err != nil {
		return fmt.Errorf("link package %s: %w", packageID, err)
	}
	return nil
}

// firstStopAt returns the lowest-ordered stop at depotID whose order is at least minOrder.
// stops are sorted by order.
func firstStopAt(stops []domain.RouteStop, depotID string, minOrder int) (domain.RouteStop, bool) {
	for _, s := range stops {
		if s.DepotID == depotID && s.Order >= minOrder {
			return s, true
		}
	}
	return domain.RouteStop{}, false
}
