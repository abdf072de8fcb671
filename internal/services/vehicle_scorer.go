package services

import (
	"math"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/geo"
	"slices"
)

// VehicleScore breaks a candidate's fitness into its weighted components.
type VehicleScore struct {
	Sweep    float64
	Trunk    float64
	Capacity float64
	Total    float64
}

// VehicleCandidate is a vehicle that passed eligibility checks, with its score.
type VehicleCandidate struct {
	Vehicle domain.Vehicle
	Home    domain.Depot
	Score   VehicleScore
}

// VehicleScorer ranks vehicles fleet-wide for a package.
type VehicleScorer struct {
	Tuning config.ScoringTuning
}

// TransitKm returns the depot-to-depot distance the package travels.
func TransitKm(pair DepotPair) float64 {
	if pair.SameDepot() {
		return 0
	}
	return geo.DistanceKm(pair.Origin.Location, pair.Destination.Location)
}

func (s VehicleScorer) IsLongRoute(pair DepotPair) bool {
	return TransitKm(pair) > s.Tuning.LongRouteKm
}

// Score computes the weighted fitness of v, homed at home, for pkg.
func (s VehicleScorer) Score(pkg domain.Package, pair DepotPair, v domain.Vehicle, home domain.Depot) VehicleScore {
	sweep := s.sweepScore(pair, home)
	trunk := s.trunkScore(pair, v, home)
	capacity := s.capacityScore(pkg, v)

	return VehicleScore{
		Sweep:    sweep,
		Trunk:    trunk,
		Capacity: capacity,
		Total:    s.Tuning.SweepWeight*sweep + s.Tuning.TrunkWeight*trunk + s.Tuning.CapacityWeight*capacity,
	}
}

// sweepScore measures how well home -> origin -> destination lines up.
func (s VehicleScorer) sweepScore(pair DepotPair, home domain.Depot) float64 {
	if pair.SameDepot() {
		approach := geo.DistanceKm(home.Location, pair.Origin.Location)
		return 1 / (1 + approach/s.Tuning.ApproachScaleKm)
	}

	if home.ID == pair.Origin.ID {
		return s.Tuning.SameDepotSweep
	}

	homeToEnd := geo.DistanceKm(home.Location, pair.Destination.Location)
	if homeToEnd < s.Tuning.NearHomeKm {
		return s.Tuning.NearHomeSweep
	}

	totalRoute := geo.DistanceKm(home.Location, pair.Origin.Location) + TransitKm(pair)
	if totalRoute == 0 {
		return 0
	}
	return homeToEnd / totalRoute
}

// trunkScore prefers local-depot trucks for long hauls and hub-based vehicles for short ones.
func (s VehicleScorer) trunkScore(pair DepotPair, v domain.Vehicle, home domain.Depot) float64 {
	if !s.IsLongRoute(pair) {
		if home.IsRegionalHub() {
			return 0.9
		}
		return 0.5
	}

	local := home.Kind == domain.DepotKindLocalDepot
	switch {
	case local && v.IsTruck():
		return 1.0
	case local:
		return 0.7
	case v.IsTruck():
		return 0.6
	default:
		return 0.3
	}
}

func (s VehicleScorer) capacityScore(pkg domain.Package, v domain.Vehicle) float64 {
	if v.WeightCapacityKg <= 0 {
		return 0
	}
	return math.Min(1, pkg.WeightKg/v.WeightCapacityKg*s.Tuning.CapacityMultiplier)
}

// Rank orders candidates by total score, highest first.
// The sort is stable so equal scores keep their encounter order.
func Rank(candidates []VehicleCandidate) []VehicleCandidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b VehicleCandidate) int {
		switch {
		case a.Score.Total > b.Score.Total:
			return -1
		case a.Score.Total < b.Score.Total:
			return 1
		}
		return 0
	})
	return ranked
}
