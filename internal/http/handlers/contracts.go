package handlers

import (
	"context"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/service/delivery"
)

type deliveryUsecase interface {
	Get(ctx context.Context, id string) (*domain.Delivery, error)
	ChangeStatus(ctx context.Context, id string, next domain.Status, loc *domain.GeoPoint) (*domain.Delivery, error)
	ReportLocation(ctx context.Context, id string, p domain.GeoPoint) error
}

// NewDeliveryUsecase wires a delivery.Usecase into a deliveryUsecase.
func NewDeliveryUsecase(uc *delivery.Usecase) deliveryUsecase {
	return uc
}
