package orders_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/gateway/orders"
	"delivery-dispatch/internal/logx"
)

func TestHTTPGateway_UpdateStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/internal/orders/O1/status", r.URL.Path)

		var req struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, orders.StatusDriverAssigned, req.Status)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := orders.NewHTTPGateway(srv.URL, time.Second)
	require.NoError(t, gw.UpdateStatus(context.Background(), "O1", orders.StatusDriverAssigned))
}

func TestHTTPGateway_UpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := orders.NewHTTPGateway(srv.URL, time.Second)
	require.ErrorIs(t, gw.UpdateStatus(context.Background(), "ghost", "delivered"), apperr.ErrNotFound)
}

type fakeCounter struct{ n atomic.Int64 }

func (c *fakeCounter) Inc() { c.n.Add(1) }

func TestRetryingGateway_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	retries := &fakeCounter{}
	gw := orders.NewRetryingGateway(
		orders.NewHTTPGateway(srv.URL, time.Second),
		logx.Nop(), retries,
		orders.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	)

	require.NoError(t, gw.UpdateStatus(context.Background(), "O1", "delivered"))
	require.Equal(t, int64(2), calls.Load())
	require.Equal(t, int64(1), retries.n.Load())
}

func TestRetryingGateway_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := orders.NewRetryingGateway(
		orders.NewHTTPGateway(srv.URL, time.Second),
		logx.Nop(), nil,
		orders.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	)

	require.ErrorIs(t, gw.UpdateStatus(context.Background(), "O1", "delivered"), apperr.ErrUnavailable)
	require.Equal(t, int64(3), calls.Load())
}

func TestRetryingGateway_ZeroMaxAttemptsStillCalls(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := orders.NewRetryingGateway(
		orders.NewHTTPGateway(srv.URL, time.Second),
		logx.Nop(), nil,
		orders.RetryConfig{},
	)

	require.ErrorIs(t, gw.UpdateStatus(context.Background(), "O1", "delivered"), apperr.ErrUnavailable)
	require.Equal(t, int64(1), calls.Load())
}

func TestRetryingGateway_NoRetryOnNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := orders.NewRetryingGateway(
		orders.NewHTTPGateway(srv.URL, time.Second),
		logx.Nop(), nil,
		orders.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	)

	require.ErrorIs(t, gw.UpdateStatus(context.Background(), "O1", "delivered"), apperr.ErrNotFound)
	require.Equal(t, int64(1), calls.Load())
}
