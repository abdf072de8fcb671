package domain

import "time"

// ServiceDateLayout is the calendar-date format routes are keyed on.
const ServiceDateLayout = "2006-01-02"

type RouteStatus string

const (
	RouteStatusPending    RouteStatus = "pending"
	RouteStatusApproved   RouteStatus = "approved"
	RouteStatusRejected   RouteStatus = "rejected"
	RouteStatusInProgress RouteStatus = "in_progress"
	RouteStatusCompleted  RouteStatus = "completed"
)

// Represents one vehicle's work for one service date.
// A vehicle has at most one route per date, and only pending routes
// are mutated by the assignment engine.
type Route struct {
	ID          string
	VehicleID   string
	DriverID    string
	ServiceDate string
	Status      RouteStatus
	CreatedAt   time.Time
}

func (r Route) IsPending() bool { return r.Status == RouteStatusPending }

// Represents a visit to a depot within a route.
// Order is 1-based and dense within the route.
type RouteStop struct {
	ID         string
	RouteID    string
	DepotID    string
	Order      int
	ArrivedAt  *time.Time
	DepartedAt *time.Time
}

// Links a package to the stops where it is picked up and dropped off.
// Pickup and dropoff reference the same stop for same-depot packages.
type RoutePackage struct {
	RouteID       string
	PackageID     string
	PickupStopID  string
	DropoffStopID string
}
