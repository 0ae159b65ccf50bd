package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"flashdeck-backend/internal/metrics"
	"flashdeck-backend/internal/models"
)

const writeWait = 10 * time.Second

// TokenParser resolves an access token to the user it was issued for.
type TokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

// Feed streams the raw messages published for one user until ctx ends.
type Feed interface {
	Listen(ctx context.Context, userID uuid.UUID, deliver func([]byte))
}

// Hub fans job updates out to every open connection of a user. One feed
// subscription is held per user while at least one connection is open.
type Hub struct {
	mu          sync.Mutex
	connections map[uuid.UUID][]*websocket.Conn
	cancelFuncs map[uuid.UUID]context.CancelFunc
	tokens      TokenParser
	feed        Feed
	upgrader    websocket.Upgrader
}

// NewHub accepts connections whose Origin matches allowedOrigin. An empty
// allowedOrigin accepts any origin.
func NewHub(tokens TokenParser, feed Feed, allowedOrigin string) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		tokens:      tokens,
		feed:        feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || strings.EqualFold(origin, allowedOrigin)
			},
		},
	}
}

// HandleWebSocket authenticates with the token query parameter, since
// browsers cannot set headers on the upgrade request.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.registerConnection(userID, conn)

	go func() {
		defer h.unregisterConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)
	metrics.WebSocketConnections.Inc()

	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.feed.Listen(ctx, userID, func(data []byte) { h.broadcast(userID, data) })
	}

	slog.Debug("websocket connected", "user_id", userID, "connections", len(h.connections[userID]))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			metrics.WebSocketConnections.Dec()
			break
		}
	}

	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	slog.Debug("websocket disconnected", "user_id", userID)
}

// broadcast holds the hub lock while writing, which also serializes writes
// to each connection.
func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[userID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("websocket write failed", "user_id", userID, "error", err)
		}
	}
}

// SendToUser writes msg to the user's connections on this instance only.
func (h *Hub) SendToUser(userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(userID, data)
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
			metrics.WebSocketConnections.Dec()
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[uuid.UUID][]*websocket.Conn)
	h.cancelFuncs = make(map[uuid.UUID]context.CancelFunc)
}
