// Package dispatch turns ready-for-delivery order events into driver
// assignments: claim the nearest driver, persist the delivery, emit the
// assignment event and nudge the order status.
package dispatch

import (
	"context"

	"delivery-dispatch/internal/domain"
)

// Repository is the slice of the delivery store the processor needs.
// Insert returns apperr.ErrConflict when the order already has a delivery.
type Repository interface {
	Insert(ctx context.Context, d *domain.Delivery) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error)
}

// EventPublisher emits assignment events onto the broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchange, key string, body []byte) error
}
