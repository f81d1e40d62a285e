package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const realtimeWriteWait = 10 * time.Second

// wireEnvelope — тегированный конверт канала, зеркало серверного формата.
type wireEnvelope struct {
	Type      string          `json:"type"`
	RoomID    *uuid.UUID      `json:"roomId,omitempty"`
	UserID    uuid.UUID       `json:"userId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type joinDecisionPayload struct {
	UserID uuid.UUID `json:"userId"`
	ChatID uuid.UUID `json:"chatId"`
	Action string    `json:"action"`
}

// RealtimeClient держит websocket-соединение с сервером: подписка на
// комнаты, отправка событий и доставка входящих сообщений в колбэки.
type RealtimeClient struct {
	baseURL string
	token   string
	userID  uuid.UUID

	mu     sync.Mutex
	conn   *websocket.Conn
	rooms  map[uuid.UUID]bool
	closed bool

	onMessage      func(roomID uuid.UUID, msg Message)
	onJoinDecision func(chatID uuid.UUID, action string)
	onDisconnect   func(err error)
}

func NewRealtimeClient(baseURL, token string, userID uuid.UUID) *RealtimeClient {
	return &RealtimeClient{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		rooms:   make(map[uuid.UUID]bool),
	}
}

func (r *RealtimeClient) OnMessage(fn func(roomID uuid.UUID, msg Message)) {
	r.onMessage = fn
}

func (r *RealtimeClient) OnJoinDecision(fn func(chatID uuid.UUID, action string)) {
	r.onJoinDecision = fn
}

func (r *RealtimeClient) OnDisconnect(fn func(err error)) {
	r.onDisconnect = fn
}

// Connect устанавливает соединение, повторно подписывается на ранее
// открытые комнаты и запускает цикл чтения.
func (r *RealtimeClient) Connect() error {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return fmt.Errorf("realtime: bad base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("token", r.token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("realtime: dial: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.closed = false
	rooms := make([]uuid.UUID, 0, len(r.rooms))
	for id := range r.rooms {
		rooms = append(rooms, id)
	}
	r.mu.Unlock()

	for _, id := range rooms {
		roomID := id
		if err := r.send(wireEnvelope{Type: "join_room", RoomID: &roomID}); err != nil {
			log.Printf("realtime: resubscribe %s: %v", roomID, err)
		}
	}

	go r.readLoop(conn)
	return nil
}

// JoinRoom подписывает клиента на канал комнаты. Подписка запоминается
// и восстанавливается при переподключении.
func (r *RealtimeClient) JoinRoom(roomID uuid.UUID) error {
	r.mu.Lock()
	r.rooms[roomID] = true
	connected := r.conn != nil && !r.closed
	r.mu.Unlock()

	if !connected {
		return nil
	}
	return r.send(wireEnvelope{Type: "join_room", RoomID: &roomID})
}

func (r *RealtimeClient) LeaveRoom(roomID uuid.UUID) error {
	r.mu.Lock()
	delete(r.rooms, roomID)
	connected := r.conn != nil && !r.closed
	r.mu.Unlock()

	if !connected {
		return nil
	}
	return r.send(wireEnvelope{Type: "leave_room", RoomID: &roomID})
}

// SendMessage публикует уже сохранённое сообщение в канал комнаты.
func (r *RealtimeClient) SendMessage(msg Message, roomID *uuid.UUID) error {
	payload, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("realtime: marshal message: %w", err)
	}
	return r.send(wireEnvelope{Type: "send_message", RoomID: roomID, Payload: payload})
}

func (r *RealtimeClient) send(env wireEnvelope) error {
	env.UserID = r.userID
	env.Timestamp = time.Now()

	data, err := json.Marshal(&env)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.closed {
		return fmt.Errorf("realtime: not connected")
	}
	r.conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *RealtimeClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if !closed && r.onDisconnect != nil {
				r.onDisconnect(err)
			}
			return
		}

		var env wireEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("realtime: bad envelope: %v", err)
			continue
		}
		r.dispatch(env)
	}
}

func (r *RealtimeClient) dispatch(env wireEnvelope) {
	switch env.Type {
	case "ping":
		if err := r.send(wireEnvelope{Type: "pong"}); err != nil {
			log.Printf("realtime: pong: %v", err)
		}

	case "receive_message":
		if r.onMessage == nil || env.RoomID == nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			log.Printf("realtime: bad message payload: %v", err)
			return
		}
		r.onMessage(*env.RoomID, msg)

	case "join_request_handled":
		if r.onJoinDecision == nil {
			return
		}
		var p joinDecisionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("realtime: bad join decision payload: %v", err)
			return
		}
		r.onJoinDecision(p.ChatID, p.Action)
	}
}

func (r *RealtimeClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.closed {
		return nil
	}
	r.closed = true
	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(realtimeWriteWait))
	return r.conn.Close()
}
