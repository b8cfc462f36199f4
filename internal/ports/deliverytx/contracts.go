package deliverytx

import (
	"context"

	"delivery-dispatch/internal/domain"
)

// Repository is the slice of the delivery store visible inside a transaction.
type Repository interface {
	GetForUpdate(ctx context.Context, id string) (*domain.Delivery, error)
	SetStatus(ctx context.Context, d *domain.Delivery) error
}

// Runner is a transaction runner.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
