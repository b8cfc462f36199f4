package rabbit

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"delivery-dispatch/internal/logx"
)

// Handler outcome sentinels. A handler returns ErrDiscard for messages that
// can never succeed (malformed payloads); any other error means "try again
// later". Wrapping is fine, classification goes through errors.Is.
var (
	ErrDiscard = errors.New("discard message")
	ErrDefer   = errors.New("defer message")
)

// HandleFunc processes one message body.
type HandleFunc func(ctx context.Context, body []byte) error

// RetryPolicy controls what happens to a deferred message. With MaxAttempts
// zero the message is nacked back onto the queue after Delay, forever. With a
// positive MaxAttempts the message is republished to the same queue carrying
// an x-attempts header and dropped once the budget is spent.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// Republisher puts a copy of a deferred message back on the queue.
type Republisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error
}

// Consumer pulls messages from one queue and feeds them to a handler, one at
// a time. Redeliveries are expected; handlers must be idempotent.
type Consumer struct {
	ch        *amqp.Channel
	queue     string
	prefetch  int
	timeout   time.Duration
	policy    RetryPolicy
	republish Republisher
	handler   HandleFunc
	logger    logx.Logger
}

func NewConsumer(
	ch *amqp.Channel,
	queue string,
	prefetch int,
	timeout time.Duration,
	policy RetryPolicy,
	republish Republisher,
	handler HandleFunc,
	logger logx.Logger,
) *Consumer {
	return &Consumer{
		ch:        ch,
		queue:     queue,
		prefetch:  prefetch,
		timeout:   timeout,
		policy:    policy,
		republish: republish,
		handler:   handler,
		logger:    logger,
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return err
	}

	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	closed := c.ch.NotifyClose(make(chan *amqp.Error, 1))

	c.logger.Info("consumer started", logx.String("queue", c.queue), logx.Int("prefetch", c.prefetch))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", logx.String("queue", c.queue))
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return nil
			}
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handleOne(ctx, d)
		}
	}
}

// handleOne runs the handler and settles the delivery. Settlement errors are
// logged and dropped: the broker redelivers unsettled messages anyway.
func (c *Consumer) handleOne(ctx context.Context, d amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.handler(hctx, d.Body)
	cancel()

	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", logx.Err(ackErr))
		}
	case errors.Is(err, ErrDiscard):
		c.logger.Warn("discarding message",
			logx.String("queue", c.queue),
			logx.String("message_id", d.MessageId),
			logx.Err(err))
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", logx.Err(ackErr))
		}
	default:
		c.deferDelivery(ctx, d, err)
	}
}

func (c *Consumer) deferDelivery(ctx context.Context, d amqp.Delivery, cause error) {
	c.logger.Warn("deferring message",
		logx.String("queue", c.queue),
		logx.String("message_id", d.MessageId),
		logx.Duration("delay", c.policy.Delay),
		logx.Err(cause))

	// The delay runs before settlement on purpose: with prefetch 1 it
	// throttles the whole queue, so a stuck dependency does not spin.
	if !sleepContext(ctx, c.policy.Delay) {
		// shutting down, leave the message unacked for redelivery
		return
	}

	if c.policy.MaxAttempts <= 0 {
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("nack failed", logx.Err(nackErr))
		}
		return
	}

	attempts := attemptCount(d.Headers) + 1
	if attempts >= c.policy.MaxAttempts {
		c.logger.Error("dropping message after retry budget",
			logx.String("queue", c.queue),
			logx.String("message_id", d.MessageId),
			logx.Int("attempts", attempts),
			logx.Err(cause))
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", logx.Err(ackErr))
		}
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers["x-attempts"] = int32(attempts)

	// default exchange routes by queue name
	if pubErr := c.republish.Publish(ctx, "", c.queue, d.Body, headers); pubErr != nil {
		c.logger.Error("republish failed, nacking instead", logx.Err(pubErr))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("nack failed", logx.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("ack failed", logx.Err(ackErr))
	}
}

func attemptCount(headers amqp.Table) int {
	switch v := headers["x-attempts"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// sleepContext waits for d, returning false if ctx finished first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
