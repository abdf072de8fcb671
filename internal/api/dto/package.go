package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RegisterPackageRequest carries dimensions in centimetres and weight in kilograms.
type RegisterPackageRequest struct {
	OriginAddress      string       `json:"origin_address"`
	DestinationAddress string       `json:"destination_address"`
	Origin             *Coordinates `json:"origin"`
	Destination        *Coordinates `json:"destination"`
	Contents           string       `json:"contents"`
	WeightKg           float64      `json:"weight_kg"`
	LengthCm           float64      `json:"length_cm"`
	WidthCm            float64      `json:"width_cm"`
	HeightCm           float64      `json:"height_cm"`
	ActorID            *string      `json:"actor_id"`
}

type PackageResponse struct {
	ID                 string       `json:"id"`
	TrackingCode       string       `json:"tracking_code"`
	OriginAddress      string       `json:"origin_address"`
	DestinationAddress string       `json:"destination_address"`
	Origin             *Coordinates `json:"origin"`
	Destination        *Coordinates `json:"destination"`
	Contents           string       `json:"contents"`
	WeightKg           float64      `json:"weight_kg"`
	VolumeM3           float64      `json:"volume_m3"`
	Status             string       `json:"status"`
	AssignedVehicleID  *string      `json:"assigned_vehicle_id"`
	OriginDepotID      *string      `json:"origin_depot_id"`
	DestinationDepotID *string      `json:"destination_depot_id"`
	CreatedAt          time.Time    `json:"created_at"`
}

type StatusEntryResponse struct {
	Status  string    `json:"status"`
	ActorID *string   `json:"actor_id"`
	Note    string    `json:"note"`
	At      time.Time `json:"at"`
}

type PackageDetailResponse struct {
	Package PackageResponse       `json:"package"`
	History []StatusEntryResponse `json:"history"`
}

type AssignmentResponse struct {
	PackageID          string  `json:"package_id"`
	Outcome            string  `json:"outcome"`
	Reason             string  `json:"reason,omitempty"`
	VehicleID          string  `json:"vehicle_id,omitempty"`
	VehiclePlate       string  `json:"vehicle_plate,omitempty"`
	RouteID            string  `json:"route_id,omitempty"`
	OriginDepotID      string  `json:"origin_depot_id,omitempty"`
	DestinationDepotID string  `json:"destination_depot_id,omitempty"`
	Score              float64 `json:"score"`
}

type RegisterPackageResponse struct {
	Package    PackageResponse    `json:"package"`
	Assignment AssignmentResponse `json:"assignment"`
}
