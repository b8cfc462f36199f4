// Package ws exposes live delivery tracking over websockets. A client joins
// one delivery room and receives every location update relayed for it.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	joinWait   = 10 * time.Second

	maxMessageSize = 512
)

// Subscriber is the relay port the tracker consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, deliveryID string) (<-chan relay.LocationUpdate, func())
}

// joinMessage is the first frame a client must send.
type joinMessage struct {
	Type       string `json:"type"`
	DeliveryID string `json:"delivery_id"`
}

// locationMessage is pushed for every update in the room.
type locationMessage struct {
	Type       string    `json:"type"`
	DeliveryID string    `json:"deliveryId"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Tracker upgrades GET /ws/track connections and streams location updates.
type Tracker struct {
	hub      Subscriber
	logger   logx.Logger
	upgrader websocket.Upgrader
}

func NewTracker(hub Subscriber, logger logx.Logger) *Tracker {
	return &Tracker{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// trackers connect from apps, not browsers on our origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (t *Tracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("websocket upgrade failed", logx.Err(err))
		return
	}
	defer conn.Close()

	deliveryID, ok := t.readJoin(conn)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, stop := t.hub.Subscribe(ctx, deliveryID)
	defer stop()

	t.logger.Info("tracker joined", logx.String("delivery_id", deliveryID))

	// Reader only pumps control frames and notices the peer going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t.writeLoop(ctx, conn, updates)
	t.logger.Info("tracker left", logx.String("delivery_id", deliveryID))
}

// readJoin waits for the join frame and validates it.
func (t *Tracker) readJoin(conn *websocket.Conn) (string, bool) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(joinWait))

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	var join joinMessage
	if err := json.Unmarshal(payload, &join); err != nil || join.Type != "join" || join.DeliveryID == "" {
		t.closeWith(conn, websocket.ClosePolicyViolation, "expected join message")
		return "", false
	}
	return join.DeliveryID, true
}

func (t *Tracker) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan relay.LocationUpdate) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.closeWith(conn, websocket.CloseGoingAway, "")
			return
		case upd, ok := <-updates:
			if !ok {
				t.closeWith(conn, websocket.CloseNormalClosure, "")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(locationMessage{
				Type:       "location",
				DeliveryID: upd.DeliveryID,
				Longitude:  upd.Longitude,
				Latitude:   upd.Latitude,
				RecordedAt: upd.RecordedAt,
			}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (t *Tracker) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
