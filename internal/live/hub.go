// Package live serves the spectator surface: a small HTTP API over the
// match store, the latest board as a PNG, and a websocket feed of game
// events.
package live

import (
	crand "crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/Frojdholm/reversi-tournament/internal/obslog"
)

const (
	clientSendBuffer = 64
	pingInterval     = 15 * time.Second
)

type client struct {
	id   string
	send chan []byte
}

// Hub fans broadcast frames out to every connected spectator. A client
// whose send buffer is full misses frames rather than slowing the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[*client]struct{}{}}
}

// Broadcast queues one frame for every connected client.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
		}
	}
	h.mu.RUnlock()
}

// Clients reports the number of connected spectators.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams broadcast frames until the
// spectator goes away. Inbound data frames are drained and ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	cl := &client{id: randID(), send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	obslog.L().Info("spectator_connected", zap.String("client", cl.id), zap.Int("spectators", count))

	// writer
	go func() {
		ping := time.NewTicker(pingInterval)
		defer func() {
			ping.Stop()
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
		}()
		for {
			select {
			case frame, ok := <-cl.send:
				if !ok {
					return
				}
				_ = conn.Write(r.Context(), websocket.MessageText, frame)
			case <-ping.C:
				_ = conn.Ping(r.Context())
			}
		}
	}()

	// reader
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, cl)
	close(cl.send)
	count = len(h.clients)
	h.mu.Unlock()
	obslog.L().Info("spectator_disconnected", zap.String("client", cl.id), zap.Int("spectators", count))
}

func randID() string {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return hex.EncodeToString(b[:])
}
