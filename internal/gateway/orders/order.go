// Package orders is the client side of the order-service collaborator.
// The dispatch pipeline only mutates an order's status as the delivery
// moves through its lifecycle.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"delivery-dispatch/internal/apperr"
)

// Gateway is the order-status mutation port.
type Gateway interface {
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// Order statuses written by this pipeline.
const (
	StatusDriverAssigned = "driver_assigned"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// HTTPGateway is a Gateway backed by the order service's JSON API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates an orders gateway. Timeout bounds every call.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus sets the order's status on the order service.
func (g *HTTPGateway) UpdateStatus(ctx context.Context, orderID, status string) error {
	body, err := json.Marshal(updateStatusRequest{Status: status})
	if err != nil {
		return fmt.Errorf("orders gateway: marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		g.baseURL+"/internal/orders/"+orderID+"/status", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("orders gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("orders gateway: update %s: %w: %w", orderID, apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("orders gateway: update %s: %w", orderID, apperr.ErrNotFound)
	default:
		return fmt.Errorf("orders gateway: update %s: unexpected status %d: %w",
			orderID, resp.StatusCode, apperr.ErrUnavailable)
	}
}
