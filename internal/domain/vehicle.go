package domain

type VehicleClass string

const (
	VehicleClassVan        VehicleClass = "van"
	VehicleClassTruck      VehicleClass = "truck"
	VehicleClassMotorcycle VehicleClass = "motorcycle"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusInTransit   VehicleStatus = "in_transit"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// Vehicle holds static capacity and placement data.
// Current load is never stored here; it is derived from the packages
// assigned to the vehicle (see Load).
type Vehicle struct {
	ID               string
	Plate            string
	Class            VehicleClass
	WeightCapacityKg float64
	VolumeCapacityM3 float64
	HomeDepotID      *string
	Status           VehicleStatus
}

func (v Vehicle) IsTruck() bool { return v.Class == VehicleClassTruck }

// Aggregate weight and volume of a vehicle's non-terminal packages.
type Load struct {
	WeightKg float64
	VolumeM3 float64
}

// Driver is a user currently bound to a vehicle.
type Driver struct {
	ID        string
	Name      string
	VehicleID *string
	Active    bool
}
