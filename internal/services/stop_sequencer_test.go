package services

import (
	"errors"
	"math/rand/v2"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceStopsSmallRoutesKeepOrder(t *testing.T) {
	assert.Equal(t, []int{}, SequenceStops(nil, nil, nil, 12))
	assert.Equal(t, []int{0, 1}, SequenceStops([]domain.Coordinates{at(1, 0), at(0, 0)}, nil, ptr(at(0, 0)), 12))
}

func TestSequenceStopsShortensTour(t *testing.T) {
	points := []domain.Coordinates{at(0, 0), at(1, 0), at(0.5, 0)}
	assert.Equal(t, []int{0, 2, 1}, SequenceStops(points, nil, ptr(at(0, 0)), 12))
}

func TestSequenceStopsHonoursPrecedence(t *testing.T) {
	points := []domain.Coordinates{at(0, 0), at(1, 0), at(0.5, 0)}
	prec := []Precedence{{Before: 1, After: 2}}
	assert.Equal(t, []int{0, 1, 2}, SequenceStops(points, prec, ptr(at(0, 0)), 12))
}

func TestSequenceStopsKeepsCurrentOrderOnTies(t *testing.T) {
	points := []domain.Coordinates{at(0, 0), at(0.5, 0), at(1, 0)}
	assert.Equal(t, []int{0, 1, 2}, SequenceStops(points, nil, nil, 12))
}

func TestSequenceStopsRandomRoutesStayValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 29))

	for _, maxExhaustive := range []int{12, 3} {
		for trial := 0; trial < 200; trial++ {
			n := 3 + rng.IntN(7)
			points := make([]domain.Coordinates, n)
			for i := range points {
				points[i] = at(rng.Float64(), rng.Float64())
			}

			// pairs drawn from the current order keep it valid
			var prec []Precedence
			for k := 0; k < rng.IntN(n); k++ {
				a, b := rng.IntN(n), rng.IntN(n)
				if a == b {
					continue
				}
				prec = append(prec, Precedence{Before: min(a, b), After: max(a, b)})
			}
			anchor := ptr(at(rng.Float64(), rng.Float64()))

			order := SequenceStops(points, prec, anchor, maxExhaustive)

			sorted := slices.Clone(order)
			slices.Sort(sorted)
			require.Equal(t, identityOrder(n), sorted, "order must be a permutation")
			require.True(t, satisfies(order, prec), "trial %d violates precedence: %v", trial, order)
			require.LessOrEqual(t, tourCost(points, order, anchor), tourCost(points, identityOrder(n), anchor)+1e-9)
		}
	}
}

func TestSequenceStopsAboveCapStartsNearAnchor(t *testing.T) {
	points := []domain.Coordinates{at(0, 0), at(0.1, 0), at(0.2, 0), at(0.3, 0), at(0.4, 0)}
	slices.Reverse(points)

	order := SequenceStops(points, nil, ptr(at(0, 0)), 3)
	assert.Equal(t, []int{4, 3, 2, 1, 0}, order)
}

func newTestSequencer(f *fixture) StopSequencer {
	return StopSequencer{Routes: f.store, Depots: f.store, Tuning: config.DefaultTuning().Sequencer}
}

func TestResequenceWritesOrderInTwoPhases(t *testing.T) {
	f := newFixture(t)
	x := f.depot("x", domain.DepotKindLocalDepot, at(0, 0))
	f.depot("y", domain.DepotKindLocalDepot, at(0.18, 0))
	f.depot("w", domain.DepotKindLocalDepot, at(0.09, 0.01))
	f.vehicle("van", domain.VehicleClassVan, 200, 5, "x", true)

	r := f.route("van", "x", "y", "w")
	stops := f.stops(r.ID)
	require.NoError(t, f.store.LinkPackage(f.ctx, domain.RoutePackage{RouteID: r.ID, PackageID: "p1", PickupStopID: stops[0].ID, DropoffStopID: stops[1].ID}))
	require.NoError(t, f.store.LinkPackage(f.ctx, domain.RoutePackage{RouteID: r.ID, PackageID: "p2", PickupStopID: stops[0].ID, DropoffStopID: stops[2].ID}))

	// a direct rewrite collides with the rows still holding the target orders
	err := f.store.SetStopOrders(f.ctx, r.ID, map[string]int{stops[2].ID: 2, stops[1].ID: 3})
	require.True(t, errors.Is(err, domain.ErrStopOrderConflict))

	s := newTestSequencer(f)
	changed, err := s.Resequence(f.ctx, r.ID, &x.Location)
	require.NoError(t, err)
	assert.True(t, changed)

	got := f.stops(r.ID)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"x", "w", "y"}, []string{got[0].DepotID, got[1].DepotID, got[2].DepotID})
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Order, got[1].Order, got[2].Order})
	f.requirePrecedence(r.ID)

	changed, err = s.Resequence(f.ctx, r.ID, &x.Location)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestResequenceLeavesShortRoutesAlone(t *testing.T) {
	f := newFixture(t)
	f.depot("x", domain.DepotKindLocalDepot, at(0, 0))
	y := f.depot("y", domain.DepotKindLocalDepot, at(0.18, 0))
	f.vehicle("van", domain.VehicleClassVan, 200, 5, "x", true)

	// anchored at y, a reversed order would be shorter, but two stops are never moved
	r := f.route("van", "x", "y")
	changed, err := newTestSequencer(f).Resequence(f.ctx, r.ID, &y.Location)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "x", f.stops(r.ID)[0].DepotID)
}
