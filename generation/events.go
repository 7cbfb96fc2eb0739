package generation

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event phases of the generation lifecycle, as pushed to subscribers.
const (
	phaseStarted   = "started"
	phaseCompleted = "completed"
	phaseFailed    = "failed"
	phaseCancelled = "cancelled"
)

// LifecycleEvent is one busy-state transition of a generation client, pushed
// over the websocket stream so the front end can drive spinners without
// polling.
type LifecycleEvent struct {
	Kind      string    `json:"kind"`
	Phase     string    `json:"phase"`
	BatchSize int       `json:"batch_size,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type eventSubscriber struct {
	conn *websocket.Conn
	send chan LifecycleEvent
}

// eventHub fans lifecycle events out to all connected websocket clients.
// A subscriber that cannot keep up is dropped rather than blocking publishers.
type eventHub struct {
	mu          sync.Mutex
	subscribers map[*eventSubscriber]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subscribers: make(map[*eventSubscriber]struct{})}
}

func (h *eventHub) publish(event LifecycleEvent) {
	if h == nil {
		return
	}
	event.At = time.Now().UTC()

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- event:
		default:
			delete(h.subscribers, sub)
			close(sub.send)
		}
	}
}

func (h *eventHub) subscribe(conn *websocket.Conn) *eventSubscriber {
	sub := &eventSubscriber{conn: conn, send: make(chan LifecycleEvent, 16)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *eventHub) unsubscribe(sub *eventSubscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	h.mu.Unlock()
}

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The studio front end is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveEvents upgrades the connection and pumps lifecycle events until the
// client goes away.
func (h *eventHub) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := eventUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("generation: websocket upgrade failed: %v", err)
		return
	}

	sub := h.subscribe(conn)
	defer func() {
		h.unsubscribe(sub)
		_ = conn.Close()
	}()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unsubscribe(sub)
				return
			}
		}
	}()

	for event := range sub.send {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
