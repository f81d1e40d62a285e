package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub — реестр соединений и подписок на каналы комнат. Транспорт
// fire-and-forget: без подтверждений, повторов и очередей, надёжность
// обеспечивают REST-персистентность и клиентская исходящая очередь.
type Hub struct {
	clients map[uuid.UUID]*Client

	// Соединения по UserID (у пользователя может быть несколько)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Подписчики каналов комнат
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub и закрывает все соединения
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		client.Conn.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)
}

// Register и Unregister не блокируются после Stop: пампы, доживающие
// остановку, выходят через ctx.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for roomID := range client.Rooms {
		h.removeFromRoomUnsafe(client, roomID)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
}

// JoinRoom подписывает соединение на канал комнаты. Проверка членства
// на этом слое не выполняется: авторизация уже прошла на REST-слое.
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()
}

func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}

	delete(room, client.ID)
	client.mu.Lock()
	delete(client.Rooms, roomID)
	client.mu.Unlock()

	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// Relay рассылает данные подписчикам комнаты, кроме соединения-отправителя.
// roomID == nil — широковещательный режим: все подключённые, кроме отправителя.
func (h *Hub) Relay(roomID *uuid.UUID, data []byte, excludeClient uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if roomID != nil {
		targets = h.rooms[*roomID]
	}

	for _, client := range targets {
		if client.ID == excludeClient {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Printf("Client %s send channel full", client.ID)
		}
	}
}

// SendToUser отправляет данные всем соединениям пользователя
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.userClients[userID] {
		select {
		case client.Send <- data:
		default:
			log.Printf("Client %s send channel full", client.ID)
		}
	}
}

// NotifyJoinDecision — адресный push о решении по заявке на вступление.
func (h *Hub) NotifyJoinDecision(userID, chatID uuid.UUID, action string) {
	payload, err := json.Marshal(JoinDecisionPayload{
		UserID: userID,
		ChatID: chatID,
		Action: action,
	})
	if err != nil {
		return
	}

	env := Envelope{
		Type:      EventJoinRequestHandled,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	h.SendToUser(userID, data)
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	env := Envelope{
		Type:      EventPing,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// RoomSubscribers возвращает пользователей, подписанных на канал комнаты
func (h *Hub) RoomSubscribers(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	for _, client := range h.rooms[roomID] {
		userMap[client.UserID] = true
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
