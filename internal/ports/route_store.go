package ports

import (
	"context"
	"parcel-dispatch-service/internal/domain"
)

// Port: a boundary for routes, their stops and package links.
type RouteStore interface {
	GetRoute(ctx context.Context, id string) (domain.Route, error)
	// Return the vehicle's route for the service date, or domain.ErrNotFound.
	FindRoute(ctx context.Context, vehicleID, serviceDate string) (domain.Route, error)
	// Create a route. Fails with domain.ErrRouteExists when the vehicle
	// already has one for the date.
	CreateRoute(ctx context.Context, route domain.Route) (domain.Route, error)
	ListPendingRoutes(ctx context.Context, serviceDate string) ([]domain.Route, error)

	// List stops ordered by Order ascending.
	ListStops(ctx context.Context, routeID string) ([]domain.RouteStop, error)
	AddStop(ctx context.Context, stop domain.RouteStop) (domain.RouteStop, error)
	// Rewrite the order of the given stops. Rows may be applied one at a
	// time, so every intermediate state must keep (route, order) unique;
	// violations fail with domain.ErrStopOrderConflict.
	SetStopOrders(ctx context.Context, routeID string, orders map[string]int) error

	ListRoutePackages(ctx context.Context, routeID string) ([]domain.RoutePackage, error)
	// Link a package to its stops, replacing an existing link on the same route.
	LinkPackage(ctx context.Context, link domain.RoutePackage) error
	// Remove the package's link from the route. Missing links are not an error.
	UnlinkPackage(ctx context.Context, routeID, packageID string) error
}
