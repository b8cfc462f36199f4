package geo

import (
	"math"

	"delivery-dispatch/internal/domain"
)

// EstimateMinutes converts pickup-to-dropoff distance into a whole-minute ETA
// for the given vehicle, rounded up. Computed once at assignment and stored on
// the delivery; never recomputed.
func EstimateMinutes(from, to domain.GeoPoint, vehicle domain.VehicleType) int {
	km := HaversineKm(from, to)
	return int(math.Ceil(km / vehicle.SpeedKmh() * 60))
}
