// Package geo provides great-circle distance and bearing helpers.
//
// All functions are pure and operate on WGS84 coordinates using a
// spherical Earth model.
package geo

import (
	"math"
	"parcel-dispatch-service/internal/domain"
)

// EarthRadiusKm is the mean radius of Earth in kilometres.
const EarthRadiusKm = 6371.0

func degToRad(d float64) float64 { return d * math.Pi / 180 }

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b domain.Coordinates) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingRadians returns the initial compass bearing from a to b in (-Pi, Pi].
// Zero points north and positive angles turn clockwise.
func BearingRadians(a, b domain.Coordinates) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := math.Atan2(y, x)
	if bearing == -math.Pi {
		return math.Pi
	}
	return bearing
}

// BearingSimilarity maps the wrapped difference between two bearings onto [0, 1].
// Identical bearings score 1 and opposite bearings score 0.
func BearingSimilarity(b1, b2 float64) float64 {
	delta := math.Mod(math.Abs(b1-b2), 2*math.Pi)
	if delta > math.Pi {
		delta = 2*math.Pi - delta
	}
	return 1 - delta/math.Pi
}

// PathDistanceKm returns the summed leg distance of an ordered path.
//
// Complexity: O(n) for n points.
func PathDistanceKm(path []domain.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += DistanceKm(path[i-1], path[i])
	}
	return total
}
