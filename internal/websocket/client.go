package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB
)

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[uuid.UUID]bool
	Hub    *Hub
	mu     sync.RWMutex
}

// EnvelopeHandler обрабатывает прикладные события канала
type EnvelopeHandler interface {
	HandleEnvelope(client *Client, env *Envelope) error
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Rooms:  make(map[uuid.UUID]bool),
		Hub:    hub,
	}
}

// ReadPump читает конверты от клиента. Идентичность берётся из
// верифицированного на рукопожатии токена, поле userId клиента
// перезаписывается.
func (c *Client) ReadPump(handler EnvelopeHandler) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		err := c.Conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		env.UserID = c.UserID

		if err := env.Validate(); err != nil {
			c.SendError(err.Error())
			continue
		}

		switch env.Type {
		case EventPong:
			continue

		case EventJoinRoom:
			c.Hub.JoinRoom(c, *env.RoomID)
			continue

		case EventLeaveRoom:
			c.Hub.LeaveRoom(c, *env.RoomID)
			continue
		}

		if handler != nil {
			if err := handler.HandleEnvelope(c, &env); err != nil {
				log.Printf("Error handling envelope: %v", err)
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump отправляет конверты клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Conn.WriteMessage(websocket.TextMessage, message)

			// Отправляем все накопившиеся сообщения
			n := len(c.Send)
			for i := 0; i < n; i++ {
				c.Conn.WriteMessage(websocket.TextMessage, <-c.Send)
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) SendEnvelope(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) SendError(errorMsg string) {
	payload, _ := json.Marshal(map[string]string{"error": errorMsg})
	c.SendEnvelope(&Envelope{
		Type:      EventError,
		UserID:    c.UserID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

func (c *Client) IsInRoom(roomID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[roomID]
}
