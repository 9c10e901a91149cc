package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pingboard/internal/events"
	"pingboard/internal/models"
)

// Frame is the wire format for messages pushed over the WebSocket.
type Frame struct {
	Type    string          `json:"type"` // status, event
	Payload json.RawMessage `json:"payload"`
}

// SnapshotFunc returns the current device status map for status frames.
type SnapshotFunc func() map[string]models.StatusSnapshot

// Hub pushes live status updates and monitoring events to connected
// dashboard clients.
type Hub struct {
	bus      *events.Bus
	snapshot SnapshotFunc
	interval time.Duration
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

type wsConn struct {
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
}

// NewHub creates a hub that pushes a status frame every interval and an
// event frame whenever the bus publishes a monitoring event.
func NewHub(bus *events.Bus, snapshot SnapshotFunc, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h := &Hub{
		bus:      bus,
		snapshot: snapshot,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsConn]struct{}),
	}

	if bus != nil {
		bus.Subscribe(func(e events.Event) {
			payload, err := json.Marshal(e)
			if err != nil {
				return
			}
			h.broadcast(Frame{Type: "event", Payload: payload})
		})
	}
	return h
}

// HandleConnection upgrades the request and streams frames until the
// client goes away.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	wc := &wsConn{
		conn: conn,
		send: make(chan Frame, 32),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[wc] = struct{}{}
	h.mu.Unlock()
	log.Printf("[WS] Client connected (%s)", r.RemoteAddr)

	go h.writeLoop(wc)
	h.readLoop(wc)

	h.mu.Lock()
	delete(h.conns, wc)
	h.mu.Unlock()
	close(wc.done)
	log.Printf("[WS] Client disconnected (%s)", r.RemoteAddr)
}

// readLoop discards client messages; the stream is server-push only.
func (h *Hub) readLoop(wc *wsConn) {
	defer wc.conn.Close()

	wc.conn.SetReadLimit(4 * 1024)
	wc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	wc.conn.SetPongHandler(func(string) error {
		wc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := wc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			return
		}
		wc.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

// writeLoop pushes queued frames, periodic status frames, and pings.
func (h *Hub) writeLoop(wc *wsConn) {
	status := time.NewTicker(h.interval)
	ping := time.NewTicker(30 * time.Second)
	defer status.Stop()
	defer ping.Stop()

	for {
		select {
		case <-wc.done:
			return
		case frame := <-wc.send:
			if err := wc.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-status.C:
			if h.snapshot == nil {
				continue
			}
			payload, err := json.Marshal(h.snapshot())
			if err != nil {
				continue
			}
			if err := wc.conn.WriteJSON(Frame{Type: "status", Payload: payload}); err != nil {
				return
			}
		case <-ping.C:
			if err := wc.conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(10*time.Second),
			); err != nil {
				return
			}
		}
	}
}

// broadcast queues a frame on every connection, dropping it for clients
// whose queue is full.
func (h *Hub) broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for wc := range h.conns {
		select {
		case wc.send <- frame:
		default:
		}
	}
}

// ActiveConnections returns the number of connected clients.
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll terminates all connections.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for wc := range h.conns {
		wc.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(5*time.Second),
		)
		wc.conn.Close()
		delete(h.conns, wc)
	}
}
