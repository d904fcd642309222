// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sendBuffer is the per-connection queue. A slow reader loses messages
// instead of blocking the publisher.
const sendBuffer = 32

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

func NewClient(userID uuid.UUID, conn *WebSocketConn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Hub delivers JSON messages to every open connection of a user.
type Hub struct {
	users      map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		users:      make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// RegisterClient reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser queues data for each of the user's connections and returns how
// many accepted it.
func (h *Hub) SendToUser(userID uuid.UUID, data any) int {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Warn("realtime: marshal message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.users[userID] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			h.log.Debug("realtime: send buffer full", zap.String("client", client.ID))
		}
	}
	return delivered
}

// Connections reports the number of open connections of a user.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Run serves register/unregister until ctx is done, then closes every
// remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			conns := h.users[client.UserID]
			if conns == nil {
				conns = make(map[string]*Client)
				h.users[client.UserID] = conns
			}
			conns[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("realtime: client registered", zap.String("client", client.ID), zap.Stringer("user", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.users[client.UserID]; ok {
				if old, ok := conns[client.ID]; ok {
					delete(conns, client.ID)
					close(old.Send)
				}
				if len(conns) == 0 {
					delete(h.users, client.UserID)
				}
			}
			h.mu.Unlock()
			h.log.Debug("realtime: client unregistered", zap.String("client", client.ID))

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for _, conns := range h.users {
				for _, c := range conns {
					close(c.Send)
				}
			}
			h.users = make(map[uuid.UUID]map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}
