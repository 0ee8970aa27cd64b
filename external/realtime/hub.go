// Package realtime delivers live notifications to connected interview
// clients over websocket, optionally fanned out across instances via redis.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
	shardCount     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
}

type shard struct {
	mu      sync.RWMutex
	clients map[int64]*client
}

// envelope is what travels over the redis channel between instances.
type envelope struct {
	UserID  int64           `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub keeps at most one live subscriber per user. A newer connection for the
// same user replaces the older one.
type Hub struct {
	shards  [shardCount]*shard
	rdb     *redis.Client
	channel string
}

// NewHub builds a hub. With a nil redis client events are delivered only to
// subscribers connected to this instance.
func NewHub(rdb *redis.Client, channel string) *Hub {
	h := &Hub{rdb: rdb, channel: channel}
	for i := range h.shards {
		h.shards[i] = &shard{clients: make(map[int64]*client)}
	}
	return h
}

func (h *Hub) shardFor(userID int64) *shard {
	idx := userID % shardCount
	if idx < 0 {
		idx = -idx
	}
	return h.shards[idx]
}

// Notify implements notify.Notifier. Without redis it reports whether a local
// subscriber took the event; with redis it reports whether the event was published.
func (h *Hub) Notify(ctx context.Context, userID int64, event notify.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode live event", "error", err, "event", event.Type, "user_id", userID)
		return false
	}
	if h.rdb != nil {
		msg, err := json.Marshal(envelope{UserID: userID, Payload: payload})
		if err != nil {
			return false
		}
		if err := h.rdb.Publish(ctx, h.channel, msg).Err(); err != nil {
			metrics.LiveDeliveries.WithLabelValues(string(event.Type), "failed").Inc()
			slog.Warn("failed to publish live event", "error", err, "event", event.Type, "user_id", userID)
			return false
		}
		metrics.LiveDeliveries.WithLabelValues(string(event.Type), "published").Inc()
		return true
	}
	delivered := h.deliverLocal(userID, payload)
	outcome := "skipped"
	if delivered {
		outcome = "delivered"
	}
	metrics.LiveDeliveries.WithLabelValues(string(event.Type), outcome).Inc()
	return delivered
}

// deliverLocal never blocks: a subscriber with a full buffer misses the event.
func (h *Hub) deliverLocal(userID int64, payload []byte) bool {
	s := h.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[userID]
	if !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Run relays events published by other instances until ctx is done. It
// returns immediately when redis is not configured.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer func() {
		_ = pubsub.Close()
	}()
	slog.Info("live event relay subscribed", "channel", h.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Error("failed to decode relayed live event", "error", err)
				continue
			}
			h.deliverLocal(env.UserID, env.Payload)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection for userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), userID: userID}
	h.register(c)
	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *client) {
	s := h.shardFor(c.userID)
	s.mu.Lock()
	old, replaced := s.clients[c.userID]
	s.clients[c.userID] = c
	s.mu.Unlock()

	if replaced {
		close(old.send)
	} else {
		metrics.LiveSubscribers.Inc()
	}
	slog.Debug("live subscriber joined", "user_id", c.userID, "replaced", replaced)
}

func (h *Hub) unregister(c *client) {
	s := h.shardFor(c.userID)
	s.mu.Lock()
	current, ok := s.clients[c.userID]
	if ok && current == c {
		delete(s.clients, c.userID)
		close(c.send)
	}
	s.mu.Unlock()

	if ok && current == c {
		metrics.LiveSubscribers.Dec()
		slog.Debug("live subscriber left", "user_id", c.userID)
	}
}

// Subscribers counts the connections held by this instance.
func (h *Hub) Subscribers() int {
	n := 0
	for _, s := range h.shards {
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}

// Stop closes every local connection and the redis client.
func (h *Hub) Stop() {
	closed := 0
	for _, s := range h.shards {
		s.mu.Lock()
		for userID, c := range s.clients {
			close(c.send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}
	metrics.LiveSubscribers.Set(0)
	if h.rdb != nil {
		if err := h.rdb.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("live hub stopped", "closed_connections", closed)
}

// readPump only watches for the peer going away; clients send nothing we use.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("live connection closed unexpectedly", "error", err, "user_id", c.userID)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
