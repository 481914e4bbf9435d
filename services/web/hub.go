//go:build !rp2040 && !rp2350

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans state events out to every connected WebSocket client. Register,
// unregister and broadcast all go through channels serviced by Run.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{} // closed when Run returns
	upgrader   websocket.Upgrader

	// greet returns the frames a client receives right after it connects.
	greet func() [][]byte
}

func NewHub(greet func() [][]byte) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		greet: greet,
	}
}

// Run services the hub until ctx is cancelled, then closes every client.
// Connections arriving after that are closed straight away. Run is called
// at most once.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.Close()
			}
			for {
				select {
				case c := <-h.register:
					_ = c.Close()
				default:
					return
				}
			}

		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.greet != nil {
				for _, msg := range h.greet() {
					if !h.write(c, websocket.TextMessage, msg, 3*time.Second) {
						break
					}
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.write(c, websocket.TextMessage, msg, 3*time.Second)
			}

		case <-ping.C:
			for c := range h.clients {
				h.write(c, websocket.PingMessage, nil, 2*time.Second)
			}
		}
	}
}

// write drops the client on failure and reports whether it is still connected.
func (h *Hub) write(c *websocket.Conn, kind int, msg []byte, timeout time.Duration) bool {
	_ = c.SetWriteDeadline(time.Now().Add(timeout))
	if err := c.WriteMessage(kind, msg); err != nil {
		delete(h.clients, c)
		_ = c.Close()
		return false
	}
	return true
}

// send hands c to Run. Once Run has returned it closes c instead and reports
// false.
func (h *Hub) send(ch chan<- *websocket.Conn, c *websocket.Conn) bool {
	select {
	case <-h.done:
		_ = c.Close()
		return false
	default:
	}
	select {
	case ch <- c:
		return true
	case <-h.done:
		_ = c.Close()
		return false
	}
}

// Handler upgrades requests and registers the connection. Clients only
// listen; anything they send is read and discarded to service pongs.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if !h.send(h.register, conn) {
			return
		}

		go func() {
			defer h.send(h.unregister, conn)
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON queues v for every client; it drops v when the queue is full.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}
