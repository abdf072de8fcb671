package geo

import (
	"math"
	"parcel-dispatch-service/internal/domain"
	"testing"
)

var (
	madrid    = domain.Coordinates{Lon: -3.7038, Lat: 40.4168}
	barcelona = domain.Coordinates{Lon: 2.1734, Lat: 41.3851}
	valencia  = domain.Coordinates{Lon: -0.3763, Lat: 39.4699}
)

func TestDistanceKmIdentityAndSymmetry(t *testing.T) {
	points := []domain.Coordinates{madrid, barcelona, valencia, {Lon: 0, Lat: 0}, {Lon: 179.9, Lat: -89.5}}

	for _, a := range points {
		if d := DistanceKm(a, a); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			if DistanceKm(a, b) != DistanceKm(b, a) {
				t.Errorf("DistanceKm not symmetric for %v and %v", a, b)
			}
		}
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	// Madrid to Barcelona is roughly 505 km great-circle.
	d := DistanceKm(madrid, barcelona)
	if d < 500 || d > 510 {
		t.Fatalf("distance = %.2f km, want about 505 km", d)
	}
}

func TestDistanceKmColinearOnMeridian(t *testing.T) {
	a := domain.Coordinates{Lon: 10, Lat: 0}
	b := domain.Coordinates{Lon: 10, Lat: 1}
	c := domain.Coordinates{Lon: 10, Lat: 2.5}

	ac := DistanceKm(a, c)
	sum := DistanceKm(a, b) + DistanceKm(b, c)
	if math.Abs(ac-sum) > 1e-6 {
		t.Fatalf("d(A,C) = %v, d(A,B)+d(B,C) = %v", ac, sum)
	}
}

func TestBearingRadians(t *testing.T) {
	origin := domain.Coordinates{Lon: 0, Lat: 0}

	north := BearingRadians(origin, domain.Coordinates{Lon: 0, Lat: 1})
	if math.Abs(north) > 1e-12 {
		t.Errorf("north bearing = %v, want 0", north)
	}

	east := BearingRadians(origin, domain.Coordinates{Lon: 1, Lat: 0})
	if math.Abs(east-math.Pi/2) > 1e-12 {
		t.Errorf("east bearing = %v, want pi/2", east)
	}

	south := BearingRadians(origin, domain.Coordinates{Lon: 0, Lat: -1})
	if south != math.Pi {
		t.Errorf("south bearing = %v, want pi", south)
	}

	west := BearingRadians(origin, domain.Coordinates{Lon: -1, Lat: 0})
	if math.Abs(west+math.Pi/2) > 1e-12 {
		t.Errorf("west bearing = %v, want -pi/2", west)
	}
}

func TestBearingSimilarity(t *testing.T) {
	if s := BearingSimilarity(1.2, 1.2); s != 1 {
		t.Errorf("identical bearings = %v, want 1", s)
	}
	if s := BearingSimilarity(0, math.Pi); math.Abs(s) > 1e-12 {
		t.Errorf("opposite bearings = %v, want 0", s)
	}

	// -170 and +170 degrees are 20 degrees apart once wrapped.
	s := BearingSimilarity(degToRad(-170), degToRad(170))
	want := 1 - 20.0/180.0
	if math.Abs(s-want) > 1e-12 {
		t.Errorf("wrapped similarity = %v, want %v", s, want)
	}
}

func TestPathDistanceKm(t *testing.T) {
	if d := PathDistanceKm(nil); d != 0 {
		t.Fatalf("empty path = %v, want 0", d)
	}
	if d := PathDistanceKm([]domain.Coordinates{madrid}); d != 0 {
		t.Fatalf("single point path = %v, want 0", d)
	}

	want := DistanceKm(madrid, valencia) + DistanceKm(valencia, barcelona)
	if d := PathDistanceKm([]domain.Coordinates{madrid, valencia, barcelona}); d != want {
		t.Fatalf("path = %v, want %v", d, want)
	}
}
