package memory

import (
	"context"
	"parcel-dispatch-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestStoreSetStopOrdersEnforcesUniquenessPerRow(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	route, err := s.CreateRoute(ctx, domain.Route{VehicleID: "v1", ServiceDate: "2026-01-01", Status: domain.RouteStatusPending})
	require.NoError(t, err)

	a, err := s.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: "A", Order: 1})
	require.NoError(t, err)
	b, err := s.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: "B", Order: 2})
	require.NoError(t, err)

	// swapping in place collides on the first row written
	err = s.SetStopOrders(ctx, route.ID, map[string]int{a.ID: 2, b.ID: 1})
	require.ErrorIs(t, err, domain.ErrStopOrderConflict)

	stops, err := s.ListStops(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, []string{stops[0].DepotID, stops[1].DepotID}, "failed write must leave orders untouched")

	// shifting first avoids every transient collision
	require.NoError(t, s.SetStopOrders(ctx, route.ID, map[string]int{a.ID: 10002, b.ID: 10001}))
	require.NoError(t, s.SetStopOrders(ctx, route.ID, map[string]int{a.ID: 2, b.ID: 1}))

	stops, err = s.ListStops(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", stops[0].DepotID)
	assert.Equal(t, 1, stops[0].Order)
	assert.Equal(t, "A", stops[1].DepotID)
	assert.Equal(t, 2, stops[1].Order)
}

func TestStoreCurrentLoadSkipsTerminalPackages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreatePackage(ctx, domain.Package{WeightKg: 10, VolumeM3: 0.1, Status: domain.PackageStatusAssigned, AssignedVehicleID: ptr("v1")})
	require.NoError(t, err)
	_, err = s.CreatePackage(ctx, domain.Package{WeightKg: 5, VolumeM3: 0.2, Status: domain.PackageStatusInTransit, AssignedVehicleID: ptr("v1")})
	require.NoError(t, err)
	_, err = s.CreatePackage(ctx, domain.Package{WeightKg: 50, VolumeM3: 1, Status: domain.PackageStatusDelivered, AssignedVehicleID: ptr("v1")})
	require.NoError(t, err)
	_, err = s.CreatePackage(ctx, domain.Package{WeightKg: 70, VolumeM3: 1, Status: domain.PackageStatusAssigned, AssignedVehicleID: ptr("v2")})
	require.NoError(t, err)

	load, err := s.CurrentLoad(ctx, "v1")
	require.NoError(t, err)
	assert.InDelta(t, 15, load.WeightKg, 1e-9)
	assert.InDelta(t, 0.3, load.VolumeM3, 1e-9)
}

func TestStoreCreateRouteUniquePerVehicleAndDate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreateRoute(ctx, domain.Route{VehicleID: "v1", ServiceDate: "2026-01-01", Status: domain.RouteStatusPending})
	require.NoError(t, err)

	_, err = s.CreateRoute(ctx, domain.Route{VehicleID: "v1", ServiceDate: "2026-01-01", Status: domain.RouteStatusPending})
	require.ErrorIs(t, err, domain.ErrRouteExists)

	_, err = s.CreateRoute(ctx, domain.Route{VehicleID: "v1", ServiceDate: "2026-01-02", Status: domain.RouteStatusPending})
	require.NoError(t, err)
}

func TestStoreUpdateStatusAppendsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p, err := s.CreatePackage(ctx, domain.Package{Status: domain.PackageStatusRegistered})
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, domain.StatusEntry{PackageID: p.ID, Status: domain.PackageStatusAssigned, Note: "Auto-assigned to vehicle X"}))

	got, err := s.GetPackage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PackageStatusAssigned, got.Status)

	history, err := s.ListStatusHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].ActorID)

	_, err = s.GetPackage(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreAssignVehicleWritesAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p, err := s.CreatePackage(ctx, domain.Package{Status: domain.PackageStatusRegistered})
	require.NoError(t, err)

	require.NoError(t, s.AssignVehicle(ctx, "v1", domain.StatusEntry{PackageID: p.ID, Status: domain.PackageStatusAssigned}))

	got, err := s.GetPackage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PackageStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedVehicleID)
	assert.Equal(t, "v1", *got.AssignedVehicleID)

	history, err := s.ListStatusHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	err = s.AssignVehicle(ctx, "v1", domain.StatusEntry{PackageID: "missing", Status: domain.PackageStatusAssigned})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreLinkPackageReplacesAndUnlinks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	route, err := s.CreateRoute(ctx, domain.Route{VehicleID: "v1", ServiceDate: "2026-01-01", Status: domain.RouteStatusPending})
	require.NoError(t, err)
	a, err := s.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: "A", Order: 1})
	require.NoError(t, err)
	b, err := s.AddStop(ctx, domain.RouteStop{RouteID: route.ID, DepotID: "B", Order: 2})
	require.NoError(t, err)

	require.NoError(t, s.LinkPackage(ctx, domain.RoutePackage{RouteID: route.ID, PackageID: "p1", PickupStopID: a.ID, DropoffStopID: a.ID}))
	require.NoError(t, s.LinkPackage(ctx, domain.RoutePackage{RouteID: route.ID, PackageID: "p1", PickupStopID: a.ID, DropoffStopID: b.ID}))

	links, err := s.ListRoutePackages(ctx, route.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, b.ID, links[0].DropoffStopID)

	require.NoError(t, s.UnlinkPackage(ctx, route.ID, "p1"))
	require.NoError(t, s.UnlinkPackage(ctx, route.ID, "p1"))

	links, err = s.ListRoutePackages(ctx, route.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}
