package services

import (
	"log"
	"math"
	"math/rand/v2"
	"parcel-dispatch-service/internal/config"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/geo"
	"sync"
	"time"
)

// DepotPair is the result of depot resolution for one package.
// Destination is nil only when the package has no destination coordinates
// and no fallback policy is configured.
type DepotPair struct {
	Origin      domain.Depot
	Destination *domain.Depot
}

// SameDepot reports whether pickup and dropoff happen at one depot.
func (p DepotPair) SameDepot() bool {
	return p.Destination == nil || p.Destination.ID == p.Origin.ID
}

// DepotFallback picks a destination depot when the package has no destination coordinates.
// depots is never empty and origin is one of its members.
type DepotFallback interface {
	Destination(depots []domain.Depot, origin domain.Depot) domain.Depot
}

// NearestToCenter picks the non-origin depot closest to a configured regional center.
type NearestToCenter struct {
	Center domain.Coordinates
}

func (f NearestToCenter) Destination(depots []domain.Depot, origin domain.Depot) domain.Depot {
	others := otherDepots(depots, origin)
	if len(others) == 0 {
		return origin
	}
	best, _ := NearestDepot(f.Center, others)
	return best
}

// FirstOther picks the first active depot other than the origin.
type FirstOther struct{}

func (FirstOther) Destination(depots []domain.Depot, origin domain.Depot) domain.Depot {
	others := otherDepots(depots, origin)
	if len(others) == 0 {
		return origin
	}
	return others[0]
}

// RandomOther picks uniformly among non-origin depots.
// It is non-deterministic unless the injected source is seeded.
type RandomOther struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomOther(rng *rand.Rand) *RandomOther {
	return &RandomOther{rng: rng}
}

func (f *RandomOther) Destination(depots []domain.Depot, origin domain.Depot) domain.Depot {
	others := otherDepots(depots, origin)
	if len(others) == 0 {
		return origin
	}

	f.mu.Lock()
	i := f.rng.IntN(len(others))
	f.mu.Unlock()

	return others[i]
}

// NewDepotFallback builds the fallback policy named in the depot tuning.
// nearest-to-center without a configured center degrades to first-other.
// random with a zero seed is seeded from the clock.
func NewDepotFallback(t config.DepotTuning) DepotFallback {
	switch t.Fallback {
	case config.FallbackFirstOther:
		return FirstOther{}
	case config.FallbackRandom:
		seed := t.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return NewRandomOther(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	}

	if t.CenterLat == nil || t.CenterLon == nil {
		log.Printf("op=depot_fallback msg=%q", "no center configured, using first-other")
		return FirstOther{}
	}
	return NearestToCenter{Center: domain.Coordinates{Lon: *t.CenterLon, Lat: *t.CenterLat}}
}

func otherDepots(depots []domain.Depot, origin domain.Depot) []domain.Depot {
	out := make([]domain.Depot, 0, len(depots))
	for _, d := range depots {
		if d.ID != origin.ID {
			out = append(out, d)
		}
	}
	return out
}

// NearestDepot returns the depot closest to c. Ties go to the depot listed first.
func NearestDepot(c domain.Coordinates, depots []domain.Depot) (domain.Depot, bool) {
	var best domain.Depot
	found := false
	bestDistance := math.Inf(1)

	for _, d := range depots {
		dist := geo.DistanceKm(c, d.Location)
		// Strict comparison keeps the first-encountered depot on ties.
		if dist < bestDistance {
			bestDistance = dist
			best = d
			found = true
		}
	}

	return best, found
}

// DepotResolver maps a package's endpoints onto active depots.
type DepotResolver struct {
	Fallback DepotFallback
}

// Resolve returns the serving depots for pkg. ok is false when depots is empty.
//
// A package without origin coordinates is served by the first active depot.
func (r DepotResolver) Resolve(pkg domain.Package, depots []domain.Depot) (_ DepotPair, ok bool) {
	if len(depots) == 0 {
		return DepotPair{}, false
	}

	origin := depots[0]
	if pkg.Origin != nil {
		origin, _ = NearestDepot(*pkg.Origin, depots)
	}

	pair := DepotPair{Origin: origin}

	switch {
	case pkg.Destination != nil:
		d, _ := NearestDepot(*pkg.Destination, depots)
		pair.Destination = &d
	case r.Fallback != nil:
		d := r.Fallback.Destination(depots, origin)
		pair.Destination = &d
	}

	return pair, true
}
