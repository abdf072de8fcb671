package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/geo"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"slices"
)

// Precedence requires stop Before to be visited no later than stop After.
type Precedence struct {
	Before int
	After  int
}

// SequenceStops returns a short visiting order for points that respects every
// precedence pair. Indices refer to points; the input order is the current one.
//
// Each stop is tried as a start for a nearest-neighbor tour, violations are
// repaired by moving the pickup just before its dropoff, and the shortest valid
// result wins. The current order competes too, so an equal-cost alternative
// never replaces it. Above maxExhaustive stops only one start is tried: the stop
// nearest the anchor, or the current first stop without one.
//
// Complexity: O(n^3) for n <= maxExhaustive, O(n^2) above.
func SequenceStops(points []domain.Coordinates, prec []Precedence, anchor *domain.Coordinates, maxExhaustive int) []int {
	n := len(points)
	current := identityOrder(n)
	if n <= 2 {
		return current
	}

	best := current
	bestCost := math.Inf(1)
	if satisfies(current, prec) {
		bestCost = tourCost(points, current, anchor)
	}

	starts := current
	if n > maxExhaustive {
		start := 0
		if anchor != nil {
			start = nearestIndex(points, *anchor, current)
		}
		starts = []int{start}
	}

	for _, s := range starts {
		order := repairPrecedence(nearestNeighborTour(points, s), prec)
		if !satisfies(order, prec) {
			continue
		}
		if cost := tourCost(points, order, anchor); cost < bestCost {
			best, bestCost = order, cost
		}
	}

	return best
}

func nearestNeighborTour(points []domain.Coordinates, start int) []int {
	n := len(points)
	visited := make([]bool, n)
	order := make([]int, 0, n)

	cur := start
	visited[cur] = true
	order = append(order, cur)

	for len(order) < n {
		next := -1
		nextDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			// Strict comparison keeps the lowest index on ties.
			if d := geo.DistanceKm(points[cur], points[j]); d < nextDist {
				next, nextDist = j, d
			}
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}

	return order
}

// repairPrecedence moves each pickup that follows its dropoff to the slot just
// before the dropoff. Moves can disturb other pairs, so passes repeat until
// stable or the pass budget runs out.
func repairPrecedence(order []int, prec []Precedence) []int {
	if len(prec) == 0 {
		return order
	}

	maxPasses := len(order) * len(prec)
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for _, p := range prec {
			pos := positions(order)
			if pos[p.Before] <= pos[p.After] {
				continue
			}
			order = slices.Delete(order, pos[p.Before], pos[p.Before]+1)
			order = slices.Insert(order, pos[p.After], p.Before)
			moved = true
		}
		if !moved {
			break
		}
	}

	return order
}

func satisfies(order []int, prec []Precedence) bool {
	pos := positions(order)
	for _, p := range prec {
		if pos[p.Before] > pos[p.After] {
			return false
		}
	}
	return true
}

func positions(order []int) map[int]int {
	pos := make(map[int]int, len(order))
	for i, idx := range order {
		pos[idx] = i
	}
	return pos
}

func tourCost(points []domain.Coordinates, order []int, anchor *domain.Coordinates) float64 {
	total := 0.0
	if anchor != nil && len(order) > 0 {
		total += geo.DistanceKm(*anchor, points[order[0]])
	}
	for i := 1; i < len(order); i++ {
		total += geo.DistanceKm(points[order[i-1]], points[order[i]])
	}
	return total
}

func nearestIndex(points []domain.Coordinates, c domain.Coordinates, candidates []int) int {
	best := candidates[0]
	bestDist := math.Inf(1)
	for _, i := range candidates {
		if d := geo.DistanceKm(c, points[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// StopSequencer reorders a stored route's stops and writes the order back.
// Callers must serialize calls per route.
type StopSequencer struct {
	Routes ports.RouteStore
	Depots ports.DepotDirectory
	Tuning config.SequencerTuning
}

// Resequence reorders routeID's stops starting from anchor, the vehicle's
// current position when known. It reports whether any stop moved.
func (s StopSequencer) Resequence(ctx context.Context, routeID string, anchor *domain.Coordinates) (_ bool, err error) {
	defer obs.Time(ctx, "sequencer.Resequence")(&err)

	stops, err := s.Routes.ListStops(ctx, routeID)
	if err != nil {
		return false, fmt.Errorf("resequence route %s: list stops: %w", routeID, err)
	}
	if len(stops) <= 2 {
		return false, nil
	}

	links, err := s.Routes.ListRoutePackages(ctx, routeID)
	if err != nil {
		return false, fmt.Errorf("resequence route %s: list packages: %w", routeID, err)
	}

	points := make([]domain.Coordinates, len(stops))
	index := make(map[string]int, len(stops))
	for i, st := range stops {
		d, err := s.Depots.GetDepot(ctx, st.DepotID)
		if err != nil {
			return false, fmt.Errorf("resequence route %s: stop %s: depot %s: %w", routeID, st.ID, st.DepotID, err)
		}
		points[i] = d.Location
		index[st.ID] = i
	}

	prec := make([]Precedence, 0, len(links))
	for _, l := range links {
		if l.PickupStopID == l.DropoffStopID {
			continue
		}
		before, okB := index[l.PickupStopID]
		after, okA := index[l.DropoffStopID]
		if !okB || !okA {
			return false, fmt.Errorf("resequence route %s: package %s links a stop outside the route", routeID, l.PackageID)
		}
		prec = append(prec, Precedence{Before: before, After: after})
	}

	if !satisfies(identityOrder(len(stops)), prec) {
		log.Printf("op=sequencer route_id=%s msg=%q", routeID, "current stop order violates pickup-before-dropoff")
	}

	order := SequenceStops(points, prec, anchor, s.Tuning.MaxExhaustiveStops)

	final := make(map[string]int, len(stops))
	changed := false
	for pos, idx := range order {
		st := stops[idx]
		final[st.ID] = pos + 1
		if st.Order != pos+1 {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	if err := s.writeOrders(ctx, routeID, final); err != nil {
		return false, err
	}
	return true, nil
}

// writeOrders applies final in two phases. Shifting every stop past the offset
// first keeps each intermediate row state free of (route, order) collisions.
func (s StopSequencer) writeOrders(ctx context.Context, routeID string, final map[string]int) error {
	shifted := make(map[string]int, len(final))
	for id, o := range final {
		shifted[id] = o + s.Tuning.OrderOffset
	}

	if err := s.Routes.SetStopOrders(ctx, routeID, shifted); err != nil {
		return fmt.Errorf("resequence route %s: shift stop orders: %w", routeID, err)
	}
	if err := s.Routes.SetStopOrders(ctx, routeID, final); err != nil {
		return fmt.Errorf("resequence route %s: write stop orders: %w", routeID, err)
	}
	return nil
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
