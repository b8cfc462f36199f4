// Package drivers is the client side of the driver-locator collaborator.
// The locator owns driver records and the availability flag; this pipeline
// only claims the nearest available driver and releases claims.
package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
)

// Locator is the driver locator port consumed by the dispatch pipeline.
//
// ClaimNearest is a claim-exchange: the collaborator atomically selects the
// nearest available driver to the given point and marks it unavailable in the
// same operation. Equidistant drivers are ordered by lowest driver id on the
// collaborator side, so claims are deterministic. A nil driver means no
// capacity right now.
type Locator interface {
	ClaimNearest(ctx context.Context, at domain.GeoPoint) (*domain.Driver, error)
	Release(ctx context.Context, driverID string) error
}

// HTTPGateway is a Locator backed by the locator service's JSON API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a locator gateway. Timeout bounds every call.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type claimRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type claimResponse struct {
	ID          string `json:"id"`
	VehicleType string `json:"vehicle_type"`
}

// ClaimNearest asks the locator to atomically claim the nearest available
// driver. Returns nil when the locator reports no capacity (204).
func (g *HTTPGateway) ClaimNearest(ctx context.Context, at domain.GeoPoint) (*domain.Driver, error) {
	body, err := json.Marshal(claimRequest{Longitude: at.Lon, Latitude: at.Lat})
	if err != nil {
		return nil, fmt.Errorf("locator gateway: marshal claim: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/internal/drivers/claim", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("locator gateway: build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("locator gateway: claim: %w: %w", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var cr claimResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return nil, fmt.Errorf("locator gateway: decode claim response: %w", err)
		}
		if cr.ID == "" {
			return nil, fmt.Errorf("locator gateway: claim response missing driver id")
		}
		return &domain.Driver{ID: cr.ID, VehicleType: domain.VehicleType(cr.VehicleType)}, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("locator gateway: claim: unexpected status %d: %w",
			resp.StatusCode, apperr.ErrUnavailable)
	}
}

// Release flips the driver's availability back to true.
func (g *HTTPGateway) Release(ctx context.Context, driverID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/internal/drivers/"+driverID+"/release", nil)
	if err != nil {
		return fmt.Errorf("locator gateway: build release request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("locator gateway: release %s: %w: %w", driverID, apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("locator gateway: release %s: %w", driverID, apperr.ErrNotFound)
	default:
		return fmt.Errorf("locator gateway: release %s: unexpected status %d: %w",
			driverID, resp.StatusCode, apperr.ErrUnavailable)
	}
}
