// Package rabbit owns the broker connection, the exchange/queue topology and
// the consume/publish plumbing for the dispatch pipeline. Nothing outside this
// package touches amqp channels directly; the consumer and publisher are
// injected where needed.
package rabbit

import (
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client wraps one broker connection.
type Client struct {
	conn *amqp.Connection
}

// Dial connects to the broker, retrying for a while to ride out broker startup.
func Dial(url string) (*Client, error) {
	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
	)

	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return &Client{conn: conn}, nil
		}
		lastErr = err
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", maxRetries, lastErr)
}

// Channel opens a fresh channel. Consumers and publishers use separate
// channels; amqp channels are not safe for mixed concurrent use.
func (c *Client) Channel() (*amqp.Channel, error) {
	return c.conn.Channel()
}

// Ping reports whether the underlying connection is still open.
func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close closes the connection and all channels derived from it.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Close()
}
