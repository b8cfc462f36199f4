package rabbit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes persistent JSON messages on its own channel.
type Publisher struct {
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation

	// publishes are serialized when confirms are enabled so acks match
	mu sync.Mutex
}

// NewPublisher wraps a channel. With confirms enabled every Publish waits for
// the broker ack before returning.
func NewPublisher(ch *amqp.Channel, confirms bool) (*Publisher, error) {
	p := &Publisher{ch: ch}
	if confirms {
		if err := ch.Confirm(false); err != nil {
			return nil, err
		}
		p.acks = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	}
	return p, nil
}

// PublishJSON sends body as a persistent JSON message with no headers.
func (p *Publisher) PublishJSON(ctx context.Context, exchange, key string, body []byte) error {
	return p.Publish(ctx, exchange, key, body, nil)
}

// Publish sends body as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(
		ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	if p.acks == nil {
		return nil
	}
	select {
	case conf := <-p.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
