package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/relay"
	"delivery-dispatch/internal/transport/ws"
)

type fakeHub struct {
	mu    sync.Mutex
	rooms map[string]chan relay.LocationUpdate
}

func newFakeHub() *fakeHub {
	return &fakeHub{rooms: map[string]chan relay.LocationUpdate{}}
}

func (h *fakeHub) Subscribe(_ context.Context, deliveryID string) (<-chan relay.LocationUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan relay.LocationUpdate, 16)
	h.rooms[deliveryID] = ch
	return ch, func() {}
}

func (h *fakeHub) push(deliveryID string, upd relay.LocationUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.rooms[deliveryID]; ok {
		ch <- upd
	}
}

func dialTracker(t *testing.T, srvURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws/track"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTracker_StreamsUpdatesAfterJoin(t *testing.T) {
	hub := newFakeHub()
	tracker := ws.NewTracker(hub, logx.Nop())

	srv := httptest.NewServer(tracker)
	defer srv.Close()

	conn := dialTracker(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join", "delivery_id": "D1"}))

	// give the subscription a beat to land in the fake hub
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.rooms["D1"]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	sent := relay.LocationUpdate{DeliveryID: "D1", Longitude: 79.87, Latitude: 6.93, RecordedAt: time.Now().UTC()}
	hub.push("D1", sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var got struct {
		Type       string  `json:"type"`
		DeliveryID string  `json:"deliveryId"`
		Longitude  float64 `json:"longitude"`
		Latitude   float64 `json:"latitude"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "location", got.Type)
	require.Equal(t, "D1", got.DeliveryID)
	require.Equal(t, 79.87, got.Longitude)
	require.Equal(t, 6.93, got.Latitude)
}

func TestTracker_RejectsInvalidJoin(t *testing.T) {
	tracker := ws.NewTracker(newFakeHub(), logx.Nop())

	srv := httptest.NewServer(tracker)
	defer srv.Close()

	conn := dialTracker(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "hello"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}
