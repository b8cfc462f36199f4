package geo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/geo"
)

var (
	colomboPickup  = domain.GeoPoint{Lon: 79.86, Lat: 6.92}
	colomboDropoff = domain.GeoPoint{Lon: 79.90, Lat: 6.95}
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	t.Parallel()

	// London -> Paris is roughly 343.5 km great-circle.
	london := domain.GeoPoint{Lon: -0.1276, Lat: 51.5072}
	paris := domain.GeoPoint{Lon: 2.3522, Lat: 48.8566}
	require.InDelta(t, 343.5, geo.HaversineKm(london, paris), 1.5)

	require.InDelta(t, 5.53, geo.HaversineKm(colomboPickup, colomboDropoff), 0.05)
}

func TestHaversineKm_Properties(t *testing.T) {
	t.Parallel()

	p := domain.GeoPoint{Lon: 79.86, Lat: 6.92}
	require.Equal(t, 0.0, geo.HaversineKm(p, p))

	// symmetric
	require.InDelta(t,
		geo.HaversineKm(colomboPickup, colomboDropoff),
		geo.HaversineKm(colomboDropoff, colomboPickup),
		1e-9,
	)
}

func TestEstimateMinutes_Scenario(t *testing.T) {
	t.Parallel()

	// ceil(5.5338 / 20 * 60) = 17 for a bike.
	require.Equal(t, 17, geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleBike))
	require.Equal(t, 12, geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleScooter))
	require.Equal(t, 9, geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleCar))
	require.Equal(t, 14, geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleTruck))
}

func TestEstimateMinutes_MonotonicInDistance(t *testing.T) {
	t.Parallel()

	from := domain.GeoPoint{Lon: 79.86, Lat: 6.92}
	prev := 0
	for i := 0; i < 50; i++ {
		to := domain.GeoPoint{Lon: from.Lon + float64(i)*0.01, Lat: from.Lat}
		eta := geo.EstimateMinutes(from, to, domain.VehicleScooter)
		require.GreaterOrEqual(t, eta, prev, "step %d", i)
		prev = eta
	}
}

func TestEstimateMinutes_VehicleSpeedOrdering(t *testing.T) {
	t.Parallel()

	bike := geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleBike)
	scooter := geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleScooter)
	car := geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleCar)

	require.GreaterOrEqual(t, bike, scooter)
	require.GreaterOrEqual(t, scooter, car)

	// unknown vehicle type estimates like a bike
	require.Equal(t, bike, geo.EstimateMinutes(colomboPickup, colomboDropoff, domain.VehicleType("unicycle")))
}

func TestEstimateMinutes_ZeroDistance(t *testing.T) {
	t.Parallel()

	p := domain.GeoPoint{Lon: 79.86, Lat: 6.92}
	require.Equal(t, 0, geo.EstimateMinutes(p, p, domain.VehicleCar))
}
