package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/gateway/drivers"
	"delivery-dispatch/internal/gateway/orders"
	"delivery-dispatch/internal/geo"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/transport/rabbit"
)

// Message outcomes, used as the counter label.
const (
	outcomeAssigned  = "assigned"
	outcomeDuplicate = "duplicate"
	outcomeDiscarded = "discarded"
	outcomeNoDriver  = "no_driver"
	outcomeDeferred  = "deferred"
)

// Processor handles one dispatch message end to end. It is wired as the
// queue consumer's handler and must stay idempotent: the broker redelivers
// on crash, and order_id uniqueness in the store is what makes redelivery
// converge instead of double-assigning.
type Processor struct {
	repo     Repository
	locator  drivers.Locator
	orders   orders.Gateway
	pub      EventPublisher
	messages *prometheus.CounterVec
	logger   logx.Logger

	exchange   string
	routingKey string
}

func NewProcessor(
	repo Repository,
	locator drivers.Locator,
	orderGw orders.Gateway,
	pub EventPublisher,
	messages *prometheus.CounterVec,
	logger logx.Logger,
) *Processor {
	return &Processor{
		repo:       repo,
		locator:    locator,
		orders:     orderGw,
		pub:        pub,
		messages:   messages,
		logger:     logger,
		exchange:   rabbit.ExchangeDeliveries,
		routingKey: rabbit.KeyDeliveryAssigned,
	}
}

// Handle implements rabbit.HandleFunc.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	msg, pickup, dropoff, err := parseMessage(body)
	if err != nil {
		p.count(outcomeDiscarded)
		return fmt.Errorf("%w: %w", rabbit.ErrDiscard, err)
	}

	existing, err := p.repo.GetByOrderID(ctx, msg.OrderID)
	if err != nil {
		p.count(outcomeDeferred)
		return fmt.Errorf("load delivery for order %s: %w", msg.OrderID, err)
	}
	if existing != nil {
		return p.handleRedelivery(ctx, existing)
	}

	drv, err := p.locator.ClaimNearest(ctx, pickup)
	if err != nil {
		p.count(outcomeDeferred)
		return fmt.Errorf("claim driver for order %s: %w", msg.OrderID, err)
	}
	if drv == nil {
		p.count(outcomeNoDriver)
		p.logger.Info("no driver available, message will retry", logx.String("order_id", msg.OrderID))
		return fmt.Errorf("%w: no driver available for order %s", apperr.ErrNoCapacity, msg.OrderID)
	}

	delivery := &domain.Delivery{
		ID:               uuid.NewString(),
		OrderID:          msg.OrderID,
		DriverID:         drv.ID,
		Status:           domain.StatusAssigned,
		Pickup:           pickup,
		Dropoff:          dropoff,
		EstimatedMinutes: geo.EstimateMinutes(pickup, dropoff, drv.VehicleType),
		CreatedAt:        time.Now().UTC(),
	}

	if err := p.repo.Insert(ctx, delivery); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// Lost a race with an earlier redelivery. Hand the claim
			// back and converge on the stored assignment.
			p.release(ctx, drv.ID)
			stored, loadErr := p.repo.GetByOrderID(ctx, msg.OrderID)
			if loadErr != nil || stored == nil {
				p.count(outcomeDeferred)
				return fmt.Errorf("reload delivery for order %s: %w", msg.OrderID, loadErr)
			}
			return p.handleRedelivery(ctx, stored)
		}
		p.release(ctx, drv.ID)
		p.count(outcomeDeferred)
		return fmt.Errorf("persist delivery for order %s: %w", msg.OrderID, err)
	}

	if err := p.publishAssigned(ctx, delivery.AssignResult()); err != nil {
		// The row exists, so the retry lands in handleRedelivery and
		// only the event is re-sent.
		p.count(outcomeDeferred)
		return fmt.Errorf("publish assignment for order %s: %w", msg.OrderID, err)
	}

	if err := p.orders.UpdateStatus(ctx, msg.OrderID, orders.StatusDriverAssigned); err != nil {
		p.logger.Warn("order status update failed",
			logx.String("order_id", msg.OrderID), logx.Err(err))
	}

	p.count(outcomeAssigned)
	p.logger.Info("delivery assigned",
		logx.String("delivery_id", delivery.ID),
		logx.String("order_id", delivery.OrderID),
		logx.String("driver_id", delivery.DriverID),
		logx.Int("estimated_minutes", delivery.EstimatedMinutes),
		logx.Time("created_at", delivery.CreatedAt))
	return nil
}

// handleRedelivery re-emits the assignment event for an order that already
// has a delivery and acks. Consumers of delivery.assigned see the event at
// least once either way.
func (p *Processor) handleRedelivery(ctx context.Context, d *domain.Delivery) error {
	if err := p.publishAssigned(ctx, d.AssignResult()); err != nil {
		p.count(outcomeDeferred)
		return fmt.Errorf("republish assignment for order %s: %w", d.OrderID, err)
	}
	p.count(outcomeDuplicate)
	p.logger.Info("order already assigned",
		logx.String("order_id", d.OrderID),
		logx.String("delivery_id", d.ID))
	return nil
}

func (p *Processor) publishAssigned(ctx context.Context, r domain.AssignResult) error {
	payload, err := json.Marshal(AssignedEvent{
		DeliveryID:    r.DeliveryID,
		OrderID:       r.OrderID,
		DriverID:      r.DriverID,
		EstimatedTime: r.EstimatedMinutes,
	})
	if err != nil {
		return fmt.Errorf("marshal assigned event: %w", err)
	}
	return p.pub.PublishJSON(ctx, p.exchange, p.routingKey, payload)
}

// release hands a claimed driver back. Best effort: the message is going to
// be retried and the locator's availability flag self-heals on the next
// successful assignment cycle.
func (p *Processor) release(ctx context.Context, driverID string) {
	if err := p.locator.Release(ctx, driverID); err != nil {
		p.logger.Error("release driver failed", logx.String("driver_id", driverID), logx.Err(err))
	}
}

func (p *Processor) count(outcome string) {
	if p.messages != nil {
		p.messages.WithLabelValues(outcome).Inc()
	}
}
