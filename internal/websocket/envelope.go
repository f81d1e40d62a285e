package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType определяет типы событий канала
type EventType string

const (
	// Системные типы
	EventPing EventType = "ping"
	EventPong EventType = "pong"

	// Подписка на каналы комнат
	EventJoinRoom  EventType = "join_room"
	EventLeaveRoom EventType = "leave_room"

	// Доставка сообщений: клиент шлёт send_message, подписчики комнаты
	// получают receive_message
	EventSendMessage    EventType = "send_message"
	EventReceiveMessage EventType = "receive_message"

	// Адресное уведомление о решении по заявке
	EventJoinRequestHandled EventType = "join_request_handled"

	EventError EventType = "error"
)

// Envelope — тегированный конверт канала. Полезная нагрузка не
// интерпретируется транспортом, но конверт валидируется до диспетчеризации.
type Envelope struct {
	Type      EventType       `json:"type"`
	RoomID    *uuid.UUID      `json:"roomId,omitempty"`
	UserID    uuid.UUID       `json:"userId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// JoinDecisionPayload — нагрузка события join_request_handled.
type JoinDecisionPayload struct {
	UserID uuid.UUID `json:"userId"`
	ChatID uuid.UUID `json:"chatId"`
	Action string    `json:"action"`
}

// Validate проверяет обязательные поля конверта для его типа.
func (e *Envelope) Validate() error {
	switch e.Type {
	case EventPing, EventPong, EventError:
		return nil

	case EventJoinRoom, EventLeaveRoom:
		if e.RoomID == nil {
			return fmt.Errorf("%w: %s requires roomId", ErrInvalidEnvelope, e.Type)
		}
		return nil

	case EventSendMessage, EventReceiveMessage:
		// RoomID == nil означает широковещательный режим.
		if len(e.Payload) == 0 {
			return fmt.Errorf("%w: %s requires a payload", ErrInvalidEnvelope, e.Type)
		}
		return nil

	case EventJoinRequestHandled:
		if len(e.Payload) == 0 {
			return fmt.Errorf("%w: %s requires a payload", ErrInvalidEnvelope, e.Type)
		}
		var p JoinDecisionPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		if p.UserID == uuid.Nil || p.ChatID == uuid.Nil || p.Action == "" {
			return fmt.Errorf("%w: incomplete join decision payload", ErrInvalidEnvelope)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
}
