package domain

// VehicleType is the transport a driver uses for deliveries.
type VehicleType string

// Known vehicle types.
const (
	VehicleBike    VehicleType = "bike"
	VehicleScooter VehicleType = "scooter"
	VehicleCar     VehicleType = "car"
	VehicleTruck   VehicleType = "truck"
)

// SpeedKmh returns the average speed assumed for ETA estimation.
// Unknown vehicle types fall back to bike speed.
func (v VehicleType) SpeedKmh() float64 {
	switch v {
	case VehicleBike:
		return 20
	case VehicleScooter:
		return 30
	case VehicleCar:
		return 40
	case VehicleTruck:
		return 25
	default:
		return 20
	}
}

// Driver is the slice of driver state this pipeline needs: identity and
// vehicle type. Availability is owned by the locator collaborator.
type Driver struct {
	ID          string
	VehicleType VehicleType
}
