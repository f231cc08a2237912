// Package geo holds great-circle helpers used by the GPS replay.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for Haversine distances.
const EarthRadiusKm = 6371.0

type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm returns the Haversine distance between two coordinates in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// RouteDistanceKm sums the distance between consecutive points.
func RouteDistanceKm(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1].Latitude, points[i-1].Longitude, points[i].Latitude, points[i].Longitude)
	}
	return total
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
