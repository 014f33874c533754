package ws

import (
	"net/http"

	"github.com/gorilla/websocket"

	"helpdesk_backend/internal/logger"
)

type Client struct {
	ID   string // operator id
	Conn *websocket.Conn
	Send chan any

	Manager *Manager
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // продакшн: проверка origin
	},
}

// ServeWS апгрейдит соединение и запускает насосы клиента
func ServeWS(manager *Manager, w http.ResponseWriter, r *http.Request, operatorID string) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return nil, err
	}

	client := &Client{
		ID:      operatorID,
		Conn:    conn,
		Send:    make(chan any, 16),
		Manager: manager,
	}

	manager.register <- client
	go client.writePump()
	go client.readPump()
	return client, nil
}

// writePump гонит срезы состояния в сокет
func (c *Client) writePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteJSON(message); err != nil {
			logger.Warn("ws write failed", "operator_id", c.ID, "error", err)
			return
		}
	}
}

// readPump только следит за жизнью соединения: мутации приходят по HTTP,
// сокет у клиента read-only
func (c *Client) readPump() {
	defer func() {
		c.Manager.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
