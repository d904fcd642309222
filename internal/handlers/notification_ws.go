package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/utils"
)

type NotificationHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Log       *zap.Logger
}

func NewNotificationHandler(hub *realtime.Hub, secret string, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Hub: hub, JWTSecret: secret, Log: log}
}

// Upgrade authenticates the ?token= query param before the websocket
// handshake; browsers cannot set headers on it.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	_, claims, err := utils.ParseJWT(h.JWTSecret, c.Query("token"))
	if err != nil {
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("userId", uid)
	return c.Next()
}

// WebSocketHandler streams lifecycle events addressed to the connected user.
func (h *NotificationHandler) WebSocketHandler(c *websocket.Conn) {
	userID, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		c.Close()
		return
	}

	client := realtime.NewClient(userID, realtime.NewWebSocketConn(c))
	if !h.Hub.RegisterClient(client) {
		c.Close()
		return
	}
	h.Log.Debug("ws: connected", zap.Stringer("user_id", userID), zap.String("client_id", client.ID))
	defer func() {
		h.Hub.UnregisterClient(client)
		h.Log.Debug("ws: disconnected", zap.Stringer("user_id", userID), zap.String("client_id", client.ID))
	}()

	go client.Pump()

	// Inbound frames only keep the connection alive (ping/pong).
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
