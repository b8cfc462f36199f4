// Package relay fans location updates out to trackers. Redis pub/sub carries
// one channel per delivery, so every process with a websocket attached sees
// updates regardless of which API instance ingested them.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"delivery-dispatch/internal/logx"
)

// LocationUpdate is one position report for a delivery in flight.
type LocationUpdate struct {
	DeliveryID string    `json:"deliveryId"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Publisher is the relay port the ingestion side depends on.
type Publisher interface {
	Publish(ctx context.Context, upd LocationUpdate) error
}

// Hub is the Redis-backed relay.
type Hub struct {
	rdb        *redis.Client
	logger     logx.Logger
	broadcasts prometheus.Counter
}

func NewHub(rdb *redis.Client, logger logx.Logger, broadcasts prometheus.Counter) *Hub {
	return &Hub{rdb: rdb, logger: logger, broadcasts: broadcasts}
}

func channelFor(deliveryID string) string {
	return "delivery.location." + deliveryID
}

// Publish broadcasts one update to the delivery's channel. No subscribers is
// not an error; updates are ephemeral and nobody replays them.
func (h *Hub) Publish(ctx context.Context, upd LocationUpdate) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("relay: marshal update: %w", err)
	}
	if err := h.rdb.Publish(ctx, channelFor(upd.DeliveryID), payload).Err(); err != nil {
		return fmt.Errorf("relay: publish %s: %w", upd.DeliveryID, err)
	}
	if h.broadcasts != nil {
		h.broadcasts.Inc()
	}
	return nil
}

// Subscribe opens a stream of updates for one delivery. The returned stop
// function tears the subscription down; the channel closes after it is
// called or when ctx ends. Malformed payloads are logged and skipped.
func (h *Hub) Subscribe(ctx context.Context, deliveryID string) (<-chan LocationUpdate, func()) {
	sub := h.rdb.Subscribe(ctx, channelFor(deliveryID))
	out := make(chan LocationUpdate, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var upd LocationUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				h.logger.Warn("relay: dropping malformed update",
					logx.String("delivery_id", deliveryID), logx.Err(err))
				continue
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}

// Ping reports relay backend health.
func (h *Hub) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}
