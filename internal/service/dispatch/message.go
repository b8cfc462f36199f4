package dispatch

import (
	"encoding/json"
	"fmt"

	"delivery-dispatch/internal/domain"
)

// geoDoc is a GeoJSON-style point: coordinates are [longitude, latitude].
type geoDoc struct {
	Coordinates []float64 `json:"coordinates"`
}

// Message is the payload of an order.ready_for_delivery event.
type Message struct {
	OrderID            string `json:"orderId"`
	RestaurantLocation geoDoc `json:"restaurantLocation"`
	DeliveryLocation   geoDoc `json:"deliveryLocation"`
}

// AssignedEvent is the payload published on delivery.assigned.
type AssignedEvent struct {
	DeliveryID    string `json:"deliveryId"`
	OrderID       string `json:"orderId"`
	DriverID      string `json:"driverId"`
	EstimatedTime int    `json:"estimatedTime"`
}

func parseMessage(body []byte) (Message, domain.GeoPoint, domain.GeoPoint, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("unmarshal: %w", err)
	}
	if msg.OrderID == "" {
		return Message{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("missing orderId")
	}

	pickup, err := toPoint(msg.RestaurantLocation)
	if err != nil {
		return Message{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("restaurantLocation: %w", err)
	}
	dropoff, err := toPoint(msg.DeliveryLocation)
	if err != nil {
		return Message{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("deliveryLocation: %w", err)
	}
	return msg, pickup, dropoff, nil
}

func toPoint(doc geoDoc) (domain.GeoPoint, error) {
	if len(doc.Coordinates) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("want 2 coordinates, got %d", len(doc.Coordinates))
	}
	p := domain.GeoPoint{Lon: doc.Coordinates[0], Lat: doc.Coordinates[1]}
	if p.Lon < -180 || p.Lon > 180 || p.Lat < -90 || p.Lat > 90 {
		return domain.GeoPoint{}, fmt.Errorf("coordinates out of range: [%v, %v]", p.Lon, p.Lat)
	}
	return p, nil
}
