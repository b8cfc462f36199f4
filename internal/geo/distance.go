// Package geo provides great-circle distance and delivery time estimation.
// Everything here is a pure function of its inputs.
package geo

import (
	"math"

	"delivery-dispatch/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(from, to domain.GeoPoint) float64 {
	lat1 := degToRad(from.Lat)
	lat2 := degToRad(to.Lat)
	dLat := degToRad(to.Lat - from.Lat)
	dLon := degToRad(to.Lon - from.Lon)

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
