package domain

import "time"

// Delivery represents one driver's transport of one order from pickup to
// drop-off. Created only by the dispatch consumer; never deleted, only
// terminally transitioned.
type Delivery struct {
	ID               string
	OrderID          string
	DriverID         string
	Status           Status
	Pickup           GeoPoint
	Dropoff          GeoPoint
	Current          *GeoPoint
	EstimatedMinutes int
	CreatedAt        time.Time
	StartedAt        *time.Time
	DeliveredAt      *time.Time
}

// AssignResult is what a successful dispatch produces.
type AssignResult struct {
	DeliveryID       string
	OrderID          string
	DriverID         string
	EstimatedMinutes int
}

// AssignResult reduces the delivery to its assignment outcome.
func (d *Delivery) AssignResult() AssignResult {
	return AssignResult{
		DeliveryID:       d.ID,
		OrderID:          d.OrderID,
		DriverID:         d.DriverID,
		EstimatedMinutes: d.EstimatedMinutes,
	}
}
