// Package geo holds the great-circle math used for radius filtering.
package geo

import "math"

const earthRadiusKM = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// PointFrom returns nil unless both coordinates are set.
func PointFrom(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &Point{Lat: *lat, Lon: *lon}
}

// HaversineKM returns the great-circle distance between a and b in kilometres.
func HaversineKM(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceKM is HaversineKM over optional points. It returns nil when either
// side has no coordinates.
func DistanceKM(a, b *Point) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := HaversineKM(*a, *b)
	return &d
}
