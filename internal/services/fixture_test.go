package services

import (
	"context"
	"parcel-dispatch-service/internal/adapters/locking"
	"parcel-dispatch-service/internal/adapters/memory"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test geography sits on the equator, where 0.01 degrees of longitude is
// about 1.11 km.
func at(lon, lat float64) domain.Coordinates {
	return domain.Coordinates{Lon: lon, Lat: lat}
}

func ptr[T any](v T) *T { return &v }

var testNow = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	engine *Engine
}

type fixtureOption func(*EngineDeps)

func withGeocoder(g ports.Geocoder) fixtureOption {
	return func(d *EngineDeps) { d.Geocoder = g }
}

func withFallback(f DepotFallback) fixtureOption {
	return func(d *EngineDeps) { d.Fallback = f }
}

// withPackages wraps the package store the engine writes through.
func withPackages(wrap func(ports.PackageStore) ports.PackageStore) fixtureOption {
	return func(d *EngineDeps) { d.Packages = wrap(d.Packages) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := memory.NewStore()
	deps := EngineDeps{
		Depots:   store,
		Vehicles: store,
		Drivers:  store,
		Packages: store,
		Routes:   store,
		Locker:   locking.NewMemoryLocker(),
		Tuning:   config.DefaultTuning(),
		Now:      func() time.Time { return testNow },
	}
	for _, o := range opts {
		o(&deps)
	}

	engine, err := NewEngine(deps)
	require.NoError(t, err)

	return &fixture{t: t, ctx: context.Background(), store: store, engine: engine}
}

func (f *fixture) depot(id string, kind domain.DepotKind, c domain.Coordinates) domain.Depot {
	return f.store.AddDepot(domain.Depot{ID: id, Name: id, Kind: kind, Location: c, Active: true})
}

// vehicle adds an available vehicle homed at home, with an active driver when driven is true.
func (f *fixture) vehicle(id string, class domain.VehicleClass, kg, m3 float64, home string, driven bool) domain.Vehicle {
	v := f.store.AddVehicle(domain.Vehicle{
		ID:               id,
		Plate:            "P-" + id,
		Class:            class,
		WeightCapacityKg: kg,
		VolumeCapacityM3: m3,
		HomeDepotID:      ptr(home),
		Status:           domain.VehicleStatusAvailable,
	})
	if driven {
		f.store.AddDriver(domain.Driver{ID: "drv-" + id, Name: "Driver " + id, VehicleID: ptr(v.ID), Active: true})
	}
	return v
}

func (f *fixture) pkg(origin, dest *domain.Coordinates, kg, m3 float64) domain.Package {
	f.t.Helper()
	p, err := f.store.CreatePackage(f.ctx, domain.Package{
		TrackingCode:       domain.NewTrackingCode(testNow),
		OriginAddress:      "origin street",
		DestinationAddress: "destination street",
		Origin:             origin,
		Destination:        dest,
		WeightKg:           kg,
		VolumeM3:           m3,
		Status:             domain.PackageStatusRegistered,
		CreatedAt:          testNow,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) assign(id string) Assignment {
	f.t.Helper()
	a, err := f.engine.AssignPackage(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) stops(routeID string) []domain.RouteStop {
	f.t.Helper()
	stops, err := f.store.ListStops(f.ctx, routeID)
	require.NoError(f.t, err)
	return stops
}

func (f *fixture) links(routeID string) []domain.RoutePackage {
	f.t.Helper()
	links, err := f.store.ListRoutePackages(f.ctx, routeID)
	require.NoError(f.t, err)
	return links
}

// requirePrecedence fails when any package's pickup stop is ordered after its dropoff.
func (f *fixture) requirePrecedence(routeID string) {
	f.t.Helper()
	order := map[string]int{}
	for _, s := range f.stops(routeID) {
		order[s.ID] = s.Order
	}
	for _, l := range f.links(routeID) {
		require.LessOrEqual(f.t, order[l.PickupStopID], order[l.DropoffStopID], "package %s", l.PackageID)
	}
}

// route stores a pending route for vehicleID visiting depotIDs in order.
func (f *fixture) route(vehicleID string, depotIDs ...string) domain.Route {
	f.t.Helper()
	r, err := f.store.CreateRoute(f.ctx, domain.Route{
		VehicleID:   vehicleID,
		DriverID:    "drv-" + vehicleID,
		ServiceDate: f.engine.ServiceDate(),
		Status:      domain.RouteStatusPending,
		CreatedAt:   testNow,
	})
	require.NoError(f.t, err)
	for i, id := range depotIDs {
		_, err := f.store.AddStop(f.ctx, domain.RouteStop{RouteID: r.ID, DepotID: id, Order: i + 1})
		require.NoError(f.t, err)
	}
	return r
}
