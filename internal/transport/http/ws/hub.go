// Package ws streams committed ledger events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"paystream/internal/auth"
	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
	"paystream/internal/transport/http/api"
	"paystream/internal/transport/http/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	account address.Address
}

// wants reports whether the subscriber asked for this event. An empty account
// filter subscribes to everything.
func (c *client) wants(evt ledger.Event) bool {
	if c.account.IsZero() {
		return true
	}
	return evt.Account == c.account || evt.Actor == c.account
}

// Hub fans committed events out to connected clients. Slow clients are
// dropped rather than allowed to block the ledger.
type Hub struct {
	upgrader   websocket.Upgrader
	secret     string
	clients    map[*client]bool
	broadcast  chan []ledger.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub(secret string, allowedOrigins []string) *Hub {
	h := &Hub{
		secret:     secret,
		clients:    map[*client]bool{},
		broadcast:  make(chan []ledger.Event, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Publish never blocks; a full backlog drops the batch.
func (h *Hub) Publish(events []ledger.Event) {
	select {
	case h.broadcast <- events:
	default:
		slog.Warn("ws broadcast backlog full, dropping events", "events", len(events))
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			slog.Debug("ws client connected", "account", c.account.String())
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case events := <-h.broadcast:
			h.dispatch(events)
		}
	}
}

func (h *Hub) dispatch(events []ledger.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, evt := range events {
		payload, err := json.Marshal(evt)
		if err != nil {
			slog.Warn("ws marshal failed", "err", err)
			continue
		}
		for c := range h.clients {
			if !c.wants(evt) {
				continue
			}
			select {
			case c.send <- payload:
			default:
				delete(h.clients, c)
				close(c.send)
			}
		}
	}
}

// ServeHTTP upgrades an authenticated request. Browsers cannot set headers on
// a websocket handshake, so a token query parameter is accepted as well.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		if token := r.URL.Query().Get("token"); token != "" {
			if claims, err := auth.ParseToken(h.secret, token); err == nil {
				caller, err = claims.Caller()
				ok = err == nil
			}
		}
	}
	if !ok || caller.IsZero() {
		api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", reqID)
		return
	}

	var filter address.Address
	if raw := r.URL.Query().Get("account"); raw != "" {
		parsed, err := address.Parse(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_address", err.Error(), reqID)
			return
		}
		filter = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err, "requestId", reqID)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), account: filter}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
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

// readPump only watches for close and pong frames; clients send nothing.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("ws read failed", "err", err)
			}
			return
		}
	}
}
