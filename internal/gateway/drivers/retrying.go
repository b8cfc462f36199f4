package drivers

import (
	"context"
	"errors"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

type counter interface {
	Inc()
}

// RetryConfig describes the retry behavior of RetryingLocator.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingLocator retries Release calls with exponential backoff.
// ClaimNearest is deliberately passed through untouched: a claim is not
// idempotent, and the dispatch consumer already has its own requeue loop
// for claim failures.
type RetryingLocator struct {
	next    Locator
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingLocator wraps next; returns nil if next is nil.
func NewRetryingLocator(next Locator, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingLocator {
	if next == nil {
		return nil
	}
	return &RetryingLocator{next: next, logger: logger, retries: retries, cfg: cfg}
}

// ClaimNearest delegates to the wrapped locator without retrying.
func (g *RetryingLocator) ClaimNearest(ctx context.Context, at domain.GeoPoint) (*domain.Driver, error) {
	return g.next.ClaimNearest(ctx, at)
}

// Release retries transient failures; a lost release leaves the driver
// parked unavailable, so it is worth a few attempts. Always makes at least
// one attempt, whatever MaxAttempts says.
func (g *RetryingLocator) Release(ctx context.Context, driverID string) error {
	attempts := g.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := g.next.Release(ctx, driverID)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts || !isRetryable(err) {
			break
		}
		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("locator gateway retry",
			logx.String("method", "Release"),
			logx.String("driver_id", driverID),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return lastErr
}

// isRetryable reports whether the error is worth another attempt.
func isRetryable(err error) bool {
	return errors.Is(err, apperr.ErrUnavailable)
}

// backoff computes the delay before the next attempt.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
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
