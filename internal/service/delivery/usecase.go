// Package delivery drives the delivery lifecycle: status transitions with
// their side effects, live location ingestion and reads.
package delivery

import (
	"context"
	"fmt"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/gateway/drivers"
	"delivery-dispatch/internal/gateway/orders"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/ports/deliverytx"
	"delivery-dispatch/internal/relay"
)

// Store is the non-transactional slice of the delivery store this usecase
// needs. GetByID returns nil when the delivery does not exist; UpdateLocation
// returns apperr.ErrNotFound.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	UpdateLocation(ctx context.Context, id string, p domain.GeoPoint) error
}

// Usecase mutates deliveries. Transitions are serialized per row with a
// transactional row lock, so concurrent writers observe a consistent chain.
type Usecase struct {
	store   Store
	tx      deliverytx.Runner
	locator drivers.Locator
	orders  orders.Gateway
	relay   relay.Publisher
	logger  logx.Logger

	now func() time.Time
}

func NewUsecase(
	store Store,
	tx deliverytx.Runner,
	locator drivers.Locator,
	orderGw orders.Gateway,
	relayPub relay.Publisher,
	logger logx.Logger,
) *Usecase {
	return &Usecase{
		store:   store,
		tx:      tx,
		locator: locator,
		orders:  orderGw,
		relay:   relayPub,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get loads one delivery. Returns apperr.ErrNotFound when absent.
func (u *Usecase) Get(ctx context.Context, id string) (*domain.Delivery, error) {
	d, err := u.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// ChangeStatus moves a delivery to next, optionally recording a location in
// the same write. An invalid transition returns apperr.ErrConflict, an
// unknown delivery apperr.ErrNotFound. Side effects (releasing the driver on
// terminal states, mirroring the order status, broadcasting the location)
// run after commit and never fail the transition.
func (u *Usecase) ChangeStatus(ctx context.Context, id string, next domain.Status, loc *domain.GeoPoint) (*domain.Delivery, error) {
	var updated *domain.Delivery

	err := u.tx.WithTx(ctx, func(tx deliverytx.Repository) error {
		d, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
		}
		if !d.Status.CanTransitionTo(next) {
			return fmt.Errorf("delivery %q: transition %s -> %s: %w",
				id, d.Status, next, apperr.ErrConflict)
		}

		d.Status = next
		now := u.now()
		switch next {
		case domain.StatusPickedUp:
			d.StartedAt = &now
		case domain.StatusDelivered:
			d.DeliveredAt = &now
		}
		if loc != nil {
			d.Current = loc
		}

		if err := tx.SetStatus(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.afterTransition(ctx, updated, loc)
	return updated, nil
}

// ReportLocation stores the driver's current position and broadcasts it to
// trackers. The broadcast is best effort; persistence is not.
func (u *Usecase) ReportLocation(ctx context.Context, id string, p domain.GeoPoint) error {
	if err := u.store.UpdateLocation(ctx, id, p); err != nil {
		return err
	}
	u.broadcast(ctx, id, p)
	return nil
}

func (u *Usecase) afterTransition(ctx context.Context, d *domain.Delivery, loc *domain.GeoPoint) {
	if status, ok := orderStatusFor(d.Status); ok {
		if err := u.orders.UpdateStatus(ctx, d.OrderID, status); err != nil {
			u.logger.Warn("order status update failed",
				logx.String("order_id", d.OrderID),
				logx.String("status", status),
				logx.Err(err))
		}
	}

	if d.Status.Terminal() {
		if err := u.locator.Release(ctx, d.DriverID); err != nil {
			u.logger.Error("release driver failed",
				logx.String("driver_id", d.DriverID), logx.Err(err))
		}
	}

	if loc != nil {
		u.broadcast(ctx, d.ID, *loc)
	}
}

func (u *Usecase) broadcast(ctx context.Context, id string, p domain.GeoPoint) {
	err := u.relay.Publish(ctx, relay.LocationUpdate{
		DeliveryID: id,
		Longitude:  p.Lon,
		Latitude:   p.Lat,
		RecordedAt: u.now(),
	})
	if err != nil {
		u.logger.Warn("location broadcast failed",
			logx.String("delivery_id", id),
			logx.Float64("lon", p.Lon),
			logx.Float64("lat", p.Lat),
			logx.Err(err))
	}
}

// orderStatusFor maps a delivery state to the order-service status written
// when the delivery enters it. Pickup is internal to the pipeline and does
// not surface on the order.
func orderStatusFor(s domain.Status) (string, bool) {
	switch s {
	case domain.StatusInTransit:
		return orders.StatusOutForDelivery, true
	case domain.StatusDelivered:
		return orders.StatusDelivered, true
	case domain.StatusCancelled:
		return orders.StatusCancelled, true
	default:
		return "", false
	}
}
