package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/geo"
	"parcel-dispatch-service/internal/ports"
	"slices"
)

// StopPoint is a route stop reduced to what distance math needs.
type StopPoint struct {
	DepotID  string
	Location domain.Coordinates
}

// Insertion describes the cost of adding a package's depots to an ordered stop list.
type Insertion struct {
	Covered     bool
	OldKm       float64
	NewKm       float64
	DetourRatio float64
	Path        []StopPoint
}

// PlanInsertion inserts the missing pickup and dropoff depots at their cheapest positions.
//
// The route already covers the package when it has a stop at the origin depot
// followed by a stop at the destination depot. Otherwise the origin is inserted
// first (if absent) and the destination is then inserted after it. dest is nil
// for same-depot packages.
func PlanInsertion(stops []StopPoint, origin StopPoint, dest *StopPoint) Insertion {
	if dest != nil && dest.DepotID == origin.DepotID {
		dest = nil
	}

	pickup := slices.IndexFunc(stops, func(s StopPoint) bool { return s.DepotID == origin.DepotID })
	dropoff := -1
	if pickup >= 0 && dest != nil {
		dropoff = indexFrom(stops, pickup+1, dest.DepotID)
	}

	oldKm := pathKm(stops)
	if pickup >= 0 && (dest == nil || dropoff >= 0) {
		return Insertion{Covered: true, OldKm: oldKm, NewKm: oldKm, Path: stops}
	}

	path := slices.Clone(stops)
	if pickup < 0 {
		path, pickup = cheapestInsert(path, origin, 0)
	}
	if dest != nil && indexFrom(path, pickup+1, dest.DepotID) < 0 {
		path, _ = cheapestInsert(path, *dest, pickup+1)
	}

	newKm := pathKm(path)
	detour := newKm - oldKm
	ratio := detour
	if oldKm > 0 {
		ratio = detour / oldKm
	}

	return Insertion{OldKm: oldKm, NewKm: newKm, DetourRatio: ratio, Path: path}
}

// cheapestInsert tries every index >= from and keeps the one with the shortest
// resulting path. Ties go to the earliest index.
func cheapestInsert(path []StopPoint, p StopPoint, from int) ([]StopPoint, int) {
	var best []StopPoint
	bestIdx := -1
	bestKm := 0.0

	for i := from; i <= len(path); i++ {
		candidate := slices.Insert(slices.Clone(path), i, p)
		km := pathKm(candidate)
		if bestIdx < 0 || km < bestKm {
			best, bestIdx, bestKm = candidate, i, km
		}
	}

	return best, bestIdx
}

func indexFrom(stops []StopPoint, from int, depotID string) int {
	for i := from; i < len(stops); i++ {
		if stops[i].DepotID == depotID {
			return i
		}
	}
	return -1
}

func pathKm(stops []StopPoint) float64 {
	pts := make([]domain.Coordinates, len(stops))
	for i, s := range stops {
		pts[i] = s.Location
	}
	return geo.PathDistanceKm(pts)
}

// ConsolidationCandidate is a pending route a package could join.
type ConsolidationCandidate struct {
	Route     domain.Route
	Vehicle   domain.Vehicle
	Insertion Insertion
	Score     float64
}

// ConsolidationEvaluator scores inserting a package into the day's pending routes.
type ConsolidationEvaluator struct {
	Routes   ports.RouteStore
	Vehicles ports.VehicleDirectory
	Ledger   CapacityLedger
	Tuning   config.ConsolidationTuning
}

// Score returns the consolidation score for an insertion and whether it qualifies.
func (e ConsolidationEvaluator) Score(ins Insertion) (float64, bool) {
	if ins.Covered {
		return e.Tuning.CoveredScore, true
	}
	if ins.DetourRatio > e.Tuning.MaxDetourRatio {
		return 0, false
	}
	return e.Tuning.ScoreNumerator / (1 + ins.DetourRatio), true
}

// Evaluate returns eligible pending routes for serviceDate, best first.
func (e ConsolidationEvaluator) Evaluate(
	ctx context.Context,
	pkg domain.Package,
	pair DepotPair,
	serviceDate string,
	depots *DepotIndex,
) ([]ConsolidationCandidate, error) {
	routes, err := e.Routes.ListPendingRoutes(ctx, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("evaluate consolidation: list pending routes: %w", err)
	}

	origin := StopPoint{DepotID: pair.Origin.ID, Location: pair.Origin.Location}
	var dest *StopPoint
	if pair.Destination != nil {
		dest = &StopPoint{DepotID: pair.Destination.ID, Location: pair.Destination.Location}
	}

	out := make([]ConsolidationCandidate, 0, len(routes))
	for _, route := range routes {
		c, ok, err := e.evaluateRoute(ctx, route, pkg, origin, dest, depots)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}

	slices.SortStableFunc(out, func(a, b ConsolidationCandidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	return out, nil
}

func (e ConsolidationEvaluator) evaluateRoute(
	ctx context.Context,
	route domain.Route,
	pkg domain.Package,
	origin StopPoint,
	dest *StopPoint,
	depots *DepotIndex,
) (ConsolidationCandidate, bool, error) {
	vehicle, err := e.Vehicles.GetVehicle(ctx, route.VehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Printf("op=consolidation route_id=%s vehicle_id=%s msg=%q", route.ID, route.VehicleID, "vehicle missing, skipping route")
		return ConsolidationCandidate{}, false, nil
	}
	if err != nil {
		return ConsolidationCandidate{}, false, fmt.Errorf("evaluate consolidation: route %s: get vehicle: %w", route.ID, err)
	}

	fits, err := e.Ledger.Fits(ctx, vehicle, pkg)
	if err != nil {
		return ConsolidationCandidate{}, false, fmt.Errorf("evaluate consolidation: route %s: %w", route.ID, err)
	}
	if !fits {
		return ConsolidationCandidate{}, false, nil
	}

	stops, err := e.Routes.ListStops(ctx, route.ID)
	if err != nil {
		return ConsolidationCandidate{}, false, fmt.Errorf("evaluate consolidation: route %s: list stops: %w", route.ID, err)
	}

	points, err := depots.StopPoints(ctx, stops)
	if err != nil {
		return ConsolidationCandidate{}, false, fmt.Errorf("evaluate consolidation: route %s: %w", route.ID, err)
	}

	ins := PlanInsertion(points, origin, dest)
	score, ok := e.Score(ins)
	if !ok {
		return ConsolidationCandidate{}, false, nil
	}

	return ConsolidationCandidate{Route: route, Vehicle: vehicle, Insertion: ins, Score: score}, true, nil
}
