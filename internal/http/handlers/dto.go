package handlers

import (
	"errors"
	"time"

	"delivery-dispatch/internal/domain"
)

type locationDTO struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (l locationDTO) toPoint() (domain.GeoPoint, error) {
	if l.Longitude < -180 || l.Longitude > 180 || l.Latitude < -90 || l.Latitude > 90 {
		return domain.GeoPoint{}, errors.New("coordinates out of range")
	}
	return domain.GeoPoint{Lon: l.Longitude, Lat: l.Latitude}, nil
}

func locationFromPoint(p domain.GeoPoint) locationDTO {
	return locationDTO{Longitude: p.Lon, Latitude: p.Lat}
}

type updateStatusRequest struct {
	Status   string       `json:"status"`
	Location *locationDTO `json:"location,omitempty"`
}

type reportLocationRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type deliveryResponse struct {
	ID            string       `json:"id"`
	OrderID       string       `json:"orderId"`
	DriverID      string       `json:"driverId"`
	Status        string       `json:"status"`
	Pickup        locationDTO  `json:"pickup"`
	Dropoff       locationDTO  `json:"dropoff"`
	Current       *locationDTO `json:"current,omitempty"`
	EstimatedTime int          `json:"estimatedTime"`
	CreatedAt     time.Time    `json:"createdAt"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	DeliveredAt   *time.Time   `json:"deliveredAt,omitempty"`
}

func deliveryToResponse(d *domain.Delivery) deliveryResponse {
	resp := deliveryResponse{
		ID:            d.ID,
		OrderID:       d.OrderID,
		DriverID:      d.DriverID,
		Status:        string(d.Status),
		Pickup:        locationFromPoint(d.Pickup),
		Dropoff:       locationFromPoint(d.Dropoff),
		EstimatedTime: d.EstimatedMinutes,
		CreatedAt:     d.CreatedAt,
		StartedAt:     d.StartedAt,
		DeliveredAt:   d.DeliveredAt,
	}
	if d.Current != nil {
		cur := locationFromPoint(*d.Current)
		resp.Current = &cur
	}
	return resp
}
