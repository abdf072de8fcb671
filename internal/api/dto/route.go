package dto

import "time"

type RouteStopResponse struct {
	ID         string     `json:"id"`
	DepotID    string     `json:"depot_id"`
	Order      int        `json:"order"`
	ArrivedAt  *time.Time `json:"arrived_at"`
	DepartedAt *time.Time `json:"departed_at"`
}

type RoutePackageResponse struct {
	PackageID     string `json:"package_id"`
	PickupStopID  string `json:"pickup_stop_id"`
	DropoffStopID string `json:"dropoff_stop_id"`
}

type RouteResponse struct {
	ID          string                 `json:"id"`
	VehicleID   string                 `json:"vehicle_id"`
	DriverID    string                 `json:"driver_id"`
	ServiceDate string                 `json:"service_date"`
	Status      string                 `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	Stops       []RouteStopResponse    `json:"stops"`
	Packages    []RoutePackageResponse `json:"packages"`
}

type ResequenceResponse struct {
	RouteID string              `json:"route_id"`
	Changed bool                `json:"changed"`
	Stops   []RouteStopResponse `json:"stops"`
}
