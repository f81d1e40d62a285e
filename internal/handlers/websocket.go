package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/roomline/internal/middleware"
	ws "github.com/thereayou/roomline/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// userID приходит из верифицированного токена
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID.(uuid.UUID))

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(&relayHandler{hub: h.hub})
}

// relayHandler — тонкая ретрансляция send_message подписчикам комнаты.
// Никакой персистентности и авторитетных данных: надёжность обеспечивает
// REST-слой, канал только ускоряет доставку.
type relayHandler struct {
	hub *ws.Hub
}

func (r *relayHandler) HandleEnvelope(client *ws.Client, env *ws.Envelope) error {
	switch env.Type {
	case ws.EventSendMessage:
		out := ws.Envelope{
			Type:      ws.EventReceiveMessage,
			RoomID:    env.RoomID,
			UserID:    client.UserID,
			Payload:   env.Payload,
			Timestamp: time.Now(),
		}
		data, err := json.Marshal(&out)
		if err != nil {
			return err
		}
		r.hub.Relay(env.RoomID, data, client.ID)
		return nil

	default:
		return ws.ErrUnknownEventType
	}
}
