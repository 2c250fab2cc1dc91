package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	applog "aidance/internal/log"
)

// Event types pushed on /api/events.
const (
	EventReady         = "ready"
	EventChat          = "chat"
	EventRecordDeleted = "record.deleted"
	EventTodos         = "todos"
	EventBudget        = "budget"
	EventCleared       = "cleared"
)

const eventWriteTimeout = 5 * time.Second

// Event is one message on the live update stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// eventHub fans events out to every connected websocket. Publishing never
// blocks a handler; events are dropped when the buffer is full.
type eventHub struct {
	clients    map[*websocket.Conn]struct{}
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     *applog.Logger
}

func newEventHub(logger *applog.Logger) *eventHub {
	return &eventHub{
		clients:    make(map[*websocket.Conn]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *eventHub) Run(ctx context.Context) error {
	defer close(h.done)
	ready, _ := json.Marshal(Event{Type: EventReady})

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return nil

		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			if !h.write(conn, ready) {
				h.drop(conn)
			}

		case conn := <-h.unregister:
			h.drop(conn)

		case message := <-h.broadcast:
			for conn := range h.clients {
				if !h.write(conn, message) {
					h.drop(conn)
				}
			}
		}
	}
}

func (h *eventHub) write(conn *websocket.Conn, message []byte) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (h *eventHub) drop(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *eventHub) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to encode event", "type", ev.Type, applog.FieldError, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.WarnContext(ctx, "Event buffer full, dropping event", "type", ev.Type)
	}
}

// sameOrigin accepts clients without an Origin header (non-browser) and
// browsers on the serving host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// handleEvents upgrades to a websocket that receives every Event. Client
// messages are read and discarded.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Websocket upgrade failed", applog.FieldError, err)
		return
	}

	select {
	case s.events.register <- conn:
	case <-s.events.done:
		conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		select {
		case s.events.unregister <- conn:
		case <-s.events.done:
		}
	}()
}

// RunEvents serves the live update stream until ctx is done.
func (s *Server) RunEvents(ctx context.Context) error {
	return s.events.Run(ctx)
}
