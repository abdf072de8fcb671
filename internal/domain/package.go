package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

const (
	PackageStatusRegistered     PackageStatus = "registered"
	PackageStatusAssigned       PackageStatus = "assigned"
	PackageStatusInTransit      PackageStatus = "in_transit"
	PackageStatusAtDepot        PackageStatus = "at_depot"
	PackageStatusOutForDelivery PackageStatus = "out_for_delivery"
	PackageStatusDelivered      PackageStatus = "delivered"
	PackageStatusReturned       PackageStatus = "returned"
	PackageStatusCancelled      PackageStatus = "cancelled"
)

// IsTerminal reports whether the status releases the package's hold on vehicle capacity.
func (s PackageStatus) IsTerminal() bool {
	switch s {
	case PackageStatusDelivered, PackageStatusReturned, PackageStatusCancelled:
		return true
	}
	return false
}

// Represents a single shipment moving between two addresses.
// Coordinates are optional; the assignment engine fills the depot
// and vehicle references.
type Package struct {
	ID                 string
	TrackingCode       string
	OriginAddress      string
	DestinationAddress string
	Origin             *Coordinates
	Destination        *Coordinates
	Contents           string
	WeightKg           float64
	VolumeM3           float64
	Status             PackageStatus
	AssignedVehicleID  *string
	OriginDepotID      *string
	DestinationDepotID *string
	CreatedAt          time.Time
}

// StatusEntry is one row of a package's status history.
// ActorID is nil for system-initiated changes.
type StatusEntry struct {
	PackageID string
	Status    PackageStatus
	ActorID   *string
	Note      string
	At        time.Time
}

const cubicCentimetresPerCubicMetre = 1_000_000

// VolumeFromDimensionsCm converts length x width x height in centimetres to cubic metres.
func VolumeFromDimensionsCm(length, width, height float64) float64 {
	return length * width * height / cubicCentimetresPerCubicMetre
}

// NewTrackingCode returns a code of the form ET-YYYYMMDD-XXXXXX.
func NewTrackingCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ET-%s-%s", now.Format("20060102"), suffix)
}
