package domain

// GeoPoint is an immutable geographic point (longitude, latitude).
type GeoPoint struct {
	Lon float64
	Lat float64
}

// Coordinates returns the point as [lon, lat] for external API compatibility.
func (p GeoPoint) Coordinates() []float64 { return []float64{p.Lon, p.Lat} }
