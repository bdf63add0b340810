package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/session"
	"github.com/wonny/valuescreener/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 64
)

// Message types pushed to clients
const (
	MessageSession   = "session"
	MessageWatchlist = "watchlist"
	MessageHistory   = "history"
)

// Message is one push notification
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// client is one WebSocket connection.
// sessionID restricts session messages to one page; empty receives all.
type client struct {
	send      chan Message
	sessionID string
}

// Hub fans out state changes to WebSocket clients
// ⭐ SSOT: 실시간 푸시는 이 허브에서만
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.WithComponent("ws"),
	}
}

// Run starts the hub event loop until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
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

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if msg.Type == MessageSession && c.sessionID != "" && c.sessionID != msg.SessionID {
					continue
				}
				select {
				case c.send <- msg:
				default:
					// 느린 클라이언트는 연결 해제
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message; dropped when the queue is full
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.WithField("type", msg.Type).Warn("Broadcast queue full, message dropped")
	}
}

// PublishSession pushes a page session change.
// Results are left out; clients page through /results.
func (h *Hub) PublishSession(e session.Event) {
	state := e.Session
	state.Results = nil
	h.Broadcast(Message{Type: MessageSession, SessionID: e.PageID, Data: state})
}

// PublishWatchlist pushes the refreshed watchlist
func (h *Hub) PublishWatchlist(items []contracts.WatchlistEntry) {
	h.Broadcast(Message{Type: MessageWatchlist, Data: items})
}

// PublishHistory pushes the refreshed history
func (h *Hub) PublishHistory(records []contracts.HistoryRecord) {
	h.Broadcast(Message{Type: MessageHistory, Data: records})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection
// GET /ws?session={id}
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		send:      make(chan Message, sendBuffer),
		sessionID: r.URL.Query().Get("session"),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

// readPump only handles control frames; clients do not send commands
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("WebSocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.WithError(err).Error("WebSocket marshal error")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
