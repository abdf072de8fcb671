package services

import (
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/geo"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testScorer() VehicleScorer {
	return VehicleScorer{Tuning: config.DefaultTuning().Scoring}
}

func depotAt(id string, kind domain.DepotKind, c domain.Coordinates) domain.Depot {
	return domain.Depot{ID: id, Kind: kind, Location: c, Active: true}
}

func TestTrunkScoreMapping(t *testing.T) {
	s := testScorer()
	hub := depotAt("hub", domain.DepotKindRegionalHub, at(0, 0))
	local := depotAt("local", domain.DepotKindLocalDepot, at(0, 0))
	far := depotAt("far", domain.DepotKindLocalDepot, at(1, 0))
	near := depotAt("near", domain.DepotKindLocalDepot, at(0.2, 0))

	long := DepotPair{Origin: hub, Destination: &far}
	short := DepotPair{Origin: hub, Destination: &near}
	truck := domain.Vehicle{Class: domain.VehicleClassTruck}
	van := domain.Vehicle{Class: domain.VehicleClassVan}

	assert.True(t, s.IsLongRoute(long))
	assert.False(t, s.IsLongRoute(short))

	cases := []struct {
		name string
		pair DepotPair
		v    domain.Vehicle
		home domain.Depot
		want float64
	}{
		{"long local truck", long, truck, local, 1.0},
		{"long local van", long, van, local, 0.7},
		{"long hub truck", long, truck, hub, 0.6},
		{"long hub van", long, van, hub, 0.3},
		{"short hub van", short, van, hub, 0.9},
		{"short hub truck", short, truck, hub, 0.9},
		{"short local van", short, van, local, 0.5},
		{"short local truck", short, truck, local, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.trunkScore(tc.pair, tc.v, tc.home))
		})
	}
}

func TestSweepScore(t *testing.T) {
	s := testScorer()
	origin := depotAt("o", domain.DepotKindLocalDepot, at(0, 0))
	dest := depotAt("d", domain.DepotKindLocalDepot, at(1, 0))
	pair := DepotPair{Origin: origin, Destination: &dest}

	t.Run("same depot decays with approach distance", func(t *testing.T) {
		same := DepotPair{Origin: origin}
		assert.InDelta(t, 1.0, s.sweepScore(same, origin), 1e-12)

		home := depotAt("h", domain.DepotKindLocalDepot, at(0.5, 0))
		approach := geo.DistanceKm(home.Location, origin.Location)
		assert.InDelta(t, 1/(1+approach/100), s.sweepScore(same, home), 1e-12)
	})

	t.Run("home at origin", func(t *testing.T) {
		assert.Equal(t, 0.7, s.sweepScore(pair, origin))
	})

	t.Run("home near destination", func(t *testing.T) {
		home := depotAt("h", domain.DepotKindLocalDepot, at(0.95, 0))
		assert.Equal(t, 0.2, s.sweepScore(pair, home))
	})

	t.Run("home behind origin lines up", func(t *testing.T) {
		home := depotAt("h", domain.DepotKindLocalDepot, at(-1, 0))
		homeToEnd := geo.DistanceKm(home.Location, dest.Location)
		total := geo.DistanceKm(home.Location, origin.Location) + TransitKm(pair)
		got := s.sweepScore(pair, home)
		assert.InDelta(t, homeToEnd/total, got, 1e-12)
		assert.InDelta(t, 1.0, got, 1e-6)
	})
}

func TestCapacityScoreAndTotal(t *testing.T) {
	s := testScorer()
	v := domain.Vehicle{Class: domain.VehicleClassVan, WeightCapacityKg: 200}

	assert.InDelta(t, 0.25, s.capacityScore(domain.Package{WeightKg: 10}, v), 1e-12)
	assert.Equal(t, 1.0, s.capacityScore(domain.Package{WeightKg: 40}, v))
	assert.Equal(t, 1.0, s.capacityScore(domain.Package{WeightKg: 150}, v))
	assert.Equal(t, 0.0, s.capacityScore(domain.Package{WeightKg: 10}, domain.Vehicle{}))

	home := depotAt("h", domain.DepotKindLocalDepot, at(0, 0))
	dest := depotAt("d", domain.DepotKindLocalDepot, at(0.18, 0))
	pair := DepotPair{Origin: home, Destination: &dest}

	score := s.Score(domain.Package{WeightKg: 40}, pair, v, home)
	assert.Equal(t, 0.7, score.Sweep)
	assert.Equal(t, 0.5, score.Trunk)
	assert.Equal(t, 1.0, score.Capacity)
	assert.InDelta(t, 0.45*0.7+0.40*0.5+0.15*1.0, score.Total, 1e-12)
}

func TestRankIsStableDescending(t *testing.T) {
	in := []VehicleCandidate{
		{Vehicle: domain.Vehicle{ID: "a"}, Score: VehicleScore{Total: 0.5}},
		{Vehicle: domain.Vehicle{ID: "b"}, Score: VehicleScore{Total: 0.9}},
		{Vehicle: domain.Vehicle{ID: "c"}, Score: VehicleScore{Total: 0.5}},
		{Vehicle: domain.Vehicle{ID: "d"}, Score: VehicleScore{Total: 0.1}},
	}

	ranked := Rank(in)
	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.Vehicle.ID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, "a", in[0].Vehicle.ID, "input is not reordered")
}
