package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/middleware"
)

// LiveMessage is sent to live feed clients for each lifecycle event of
// their store.
type LiveMessage struct {
	Type    document.EventType `json:"type"`
	StoreID string             `json:"storeId"`
	Kind    document.Kind      `json:"kind,omitempty"`
	Key     string             `json:"key,omitempty"`
	Version int64              `json:"version"`
	At      time.Time          `json:"at"`
}

// HubConfig configures a Hub.
type HubConfig struct {
	// AllowedOrigins lists origins allowed to connect. "*" allows any.
	// Empty applies the same-origin check.
	AllowedOrigins []string

	// BufferSize is the per-client queue length (default 16). A client
	// whose queue is full is disconnected.
	BufferSize int

	// WriteTimeout bounds each websocket write (default 10s).
	WriteTimeout time.Duration

	Metrics *middleware.Metrics
	Logger  *slog.Logger
}

// Hub fans document lifecycle events out to websocket clients. It
// implements document.Hook; clients only see events of the store they
// connected for.
type Hub struct {
	clients      map[*liveClient]struct{}
	mu           sync.RWMutex
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
	metrics      *middleware.Metrics
	logger       *slog.Logger
}

type liveClient struct {
	conn    *websocket.Conn
	storeID string
	send    chan []byte
}

// NewHub creates a hub.
func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		clients:      make(map[*liveClient]struct{}),
		bufferSize:   cfg.BufferSize,
		writeTimeout: cfg.WriteTimeout,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
	if h.bufferSize <= 0 {
		h.bufferSize = 16
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = 10 * time.Second
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// originChecker returns nil for an empty list so the upgrader falls back
// to its same-origin check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set["*"] || set[r.Header.Get("Origin")]
	}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects. The tenant must already be on the request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t := tenantOf(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.logger.Debug("live upgrade failed", "error", err)
		return
	}

	c := &liveClient{conn: conn, storeID: t.StoreID, send: make(chan []byte, h.bufferSize)}
	h.add(c)
	go h.writeLoop(c)

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writeLoop(c *liveClient) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("live write failed", "store_id", c.storeID, "error", err)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
}

func (h *Hub) add(c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.LiveClientConnected()
}

// remove unregisters c and closes its queue, which ends its writer.
func (h *Hub) remove(c *liveClient) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.LiveClientDisconnected()
	}
	return ok
}

// OnEvent queues ev for every client of its store. Clients with a full
// queue are dropped.
func (h *Hub) OnEvent(_ context.Context, ev document.Event) error {
	data, err := json.Marshal(LiveMessage{
		Type:    ev.Type,
		StoreID: ev.StoreID,
		Kind:    ev.Kind,
		Key:     ev.Key,
		Version: ev.Version,
		At:      ev.At,
	})
	if err != nil {
		return err
	}

	var slow []*liveClient
	h.mu.RLock()
	for c := range h.clients {
		if c.storeID != ev.StoreID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.remove(c) {
			h.metrics.LiveClientDropped()
			h.logger.Warn("live client dropped", "store_id", c.storeID)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*liveClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.remove(c)
	}
}
