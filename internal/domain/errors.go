package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRouteNotPending is returned when a mutation targets a route that left the pending state.
	ErrRouteNotPending = errors.New("route is not pending")

	// ErrStopOrderConflict is returned when two stops of one route would share an order value.
	ErrStopOrderConflict = errors.New("stop order conflict")

	// ErrRouteExists is returned when a vehicle already has a route for the service date.
	ErrRouteExists = errors.New("route already exists for vehicle and date")
)
