// internal/realtime/websocket.go
package realtime

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const writeWait = 10 * time.Second

// WebSocketConn wraps websocket.Conn so the hub does not depend on the transport.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

func (w *WebSocketConn) WriteText(b []byte) error {
	if err := w.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.Conn.WriteMessage(websocket.TextMessage, b)
}

// Pump writes every queued message until the client's channel is closed or a
// write fails.
func (c *Client) Pump() {
	for msg := range c.Send {
		if err := c.Conn.WriteText(msg); err != nil {
			return
		}
	}
}
