package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	queueDepth = 16
)

// Notice is broadcast to websocket listeners after every generated mesh.
type Notice struct {
	Event     string        `json:"event"`
	Vertices  int           `json:"vertices"`
	Triangles int           `json:"triangles"`
	Bytes     int           `json:"bytes"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Hub keeps the open websocket connections and fans messages out to them
// from its own goroutine, so a slow listener never holds up the caller.
// Incoming messages are read and dropped.
type Hub struct {
	mu        sync.Mutex
	conns     map[*websocket.Conn]struct{}
	upgrader  websocket.Upgrader
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	h := &Hub{
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		queue: make(chan []byte, queueDepth),
		done:  make(chan struct{}),
		log:   logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.queue:
			h.send(msg)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.log.Warn("websocket upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(conn)
	h.log.Debug("websocket disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		_ = conn.Close()
	}
}

// Len is the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast queues v for delivery as a JSON text message to every
// connection and returns without waiting for the writes. When the queue is
// full the message is dropped.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encoding broadcast", "err", err)
		return
	}
	select {
	case <-h.done:
	case h.queue <- msg:
	default:
		h.log.Warn("broadcast queue full, dropping message")
	}
}

// send writes msg to every connection. Connections that fail to take the
// write are closed.
func (h *Hub) send(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("dropping websocket", "remote", conn.RemoteAddr(), "err", err)
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}

// Close stops delivery and disconnects every listener.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
