// Package ws fans reservation change events out to connected clients over
// WebSocket. The feed is the change-notification channel of the system:
// clients treat every event as a "something changed" trigger and re-fetch
// the full reservation list rather than patching from the payload.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Handler upgrades requests on /ws/reservations and parks them in the
// hub. Inbound frames are drained and ignored; the feed is one-way.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		h.add(conn)
		defer h.remove(conn)

		ctx := r.Context()
		for {
			var v any
			if err := wsjson.Read(ctx, conn, &v); err != nil {
				return
			}
		}
	}
}

// Broadcast sends event to every connected client. A connection that
// cannot be written within the timeout is closed and dropped.
func (h *Hub) Broadcast(event any) {
	for _, conn := range h.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, conn, event)
		cancel()
		if err != nil {
			go func(conn *websocket.Conn) {
				conn.Close(websocket.StatusGoingAway, "write error")
				h.remove(conn)
			}(conn)
		}
	}
}

// ConnCount reports the number of live connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		out = append(out, conn)
	}
	return out
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}
