package domain

// DepotKind classifies a depot's role in the network.
type DepotKind string

const (
	// Long-haul trunk legs run between regional hubs.
	DepotKindRegionalHub DepotKind = "regional_hub"
	// Local depots serve last-mile delivery.
	DepotKindLocalDepot DepotKind = "local_depot"
)

// A fixed facility where routes pick up and drop off packages.
// Coordinates anchor every distance computation in the engine.
type Depot struct {
	ID       string
	Name     string
	Location Coordinates
	Kind     DepotKind
	City     string
	Active   bool
}

func (d Depot) IsRegionalHub() bool { return d.Kind == DepotKindRegionalHub }
