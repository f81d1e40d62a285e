package chat

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

type memberKey struct {
	userID uuid.UUID
	chatID uuid.UUID
}

// MemoryStore — внедряемый in-memory бэкенд Store. Используется тестами
// и dev-режимом вместо Postgres; семантика методов идентична.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	rooms    map[uuid.UUID]models.ChatRoom
	members  map[memberKey]models.ChatRoomMember
	reads    map[memberKey]models.ChatRoomRead
	messages map[uuid.UUID]models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]models.User),
		rooms:    make(map[uuid.UUID]models.ChatRoom),
		members:  make(map[memberKey]models.ChatRoomMember),
		reads:    make(map[memberKey]models.ChatRoomRead),
		messages: make(map[uuid.UUID]models.Message),
	}
}

// PutUser регистрирует пользователя (в тестах заменяет /auth/register).
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) GetUser(id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) CreateRoomWithAdmin(room *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	key := memberKey{userID: room.AdminID, chatID: room.ID}
	s.members[key] = models.ChatRoomMember{
		UserID:    room.AdminID,
		ChatID:    room.ID,
		Status:    models.MemberApproved,
		Timestamp: room.CreatedAt,
	}
	s.reads[key] = models.ChatRoomRead{UserID: room.AdminID, ChatID: room.ID, Unread: true}
	return nil
}

func (s *MemoryStore) GetRoom(id uuid.UUID) (*models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return &room, nil
}

func (s *MemoryStore) TouchRoomActivity(id uuid.UUID, lastMessage string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	room.LastMessage = lastMessage
	room.UpdatedAt = at
	s.rooms[id] = room
	return nil
}

func (s *MemoryStore) SetRoomAdmin(chatID, newAdminID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[chatID]
	if !ok {
		return fmt.Errorf("room %s: %w", chatID, ErrNotFound)
	}
	room.AdminID = newAdminID
	s.rooms[chatID] = room
	return nil
}

func (s *MemoryStore) TransferAdminAndRemove(chatID, newAdminID, leaverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[chatID]
	if !ok {
		return fmt.Errorf("room %s: %w", chatID, ErrNotFound)
	}
	room.AdminID = newAdminID
	s.rooms[chatID] = room
	key := memberKey{userID: leaverID, chatID: chatID}
	delete(s.members, key)
	delete(s.reads, key)
	return nil
}

func (s *MemoryStore) DeleteRoomCascade(chatID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, chatID)
	for key := range s.members {
		if key.chatID == chatID {
			delete(s.members, key)
		}
	}
	for key := range s.reads {
		if key.chatID == chatID {
			delete(s.reads, key)
		}
	}
	for id, m := range s.messages {
		if m.ChatID == chatID {
			delete(s.messages, id)
		}
	}
	return nil
}

func roomOlder(a, b models.ChatRoom) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (s *MemoryStore) ListRoomsForUser(userID uuid.UUID, before *models.ChatRoom, limit int) ([]models.ChatRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []models.ChatRoom
	for key, m := range s.members {
		if key.userID != userID || m.Status != models.MemberApproved {
			continue
		}
		room, ok := s.rooms[key.chatID]
		if !ok {
			continue
		}
		if before != nil && !roomOlder(room, *before) {
			continue
		}
		rooms = append(rooms, room)
	}
	// Свежайшая активность первой, id разрывает равенство.
	sort.Slice(rooms, func(i, j int) bool { return roomOlder(rooms[j], rooms[i]) })
	if len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, nil
}

func (s *MemoryStore) GetMember(chatID, userID uuid.UUID) (*models.ChatRoomMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberKey{userID: userID, chatID: chatID}]
	if !ok {
		return nil, fmt.Errorf("member (%s, %s): %w", userID, chatID, ErrNotFound)
	}
	return &m, nil
}

func (s *MemoryStore) CreateMember(m *models.ChatRoomMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{userID: m.UserID, chatID: m.ChatID}
	if _, exists := s.members[key]; exists {
		// (user_id, chat_id) — первичный ключ, дубликат невозможен.
		return fmt.Errorf("member (%s, %s) already exists", m.UserID, m.ChatID)
	}
	s.members[key] = *m
	return nil
}

func (s *MemoryStore) ApproveMember(chatID, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{userID: userID, chatID: chatID}
	m, ok := s.members[key]
	if !ok {
		return fmt.Errorf("member (%s, %s): %w", userID, chatID, ErrNotFound)
	}
	m.Status = models.MemberApproved
	m.Timestamp = at
	s.members[key] = m
	s.reads[key] = models.ChatRoomRead{UserID: userID, ChatID: chatID, Unread: true}
	return nil
}

func (s *MemoryStore) DeleteMember(chatID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberKey{userID: userID, chatID: chatID})
	return nil
}

func (s *MemoryStore) ListApprovedMembers(chatID uuid.UUID) ([]models.ChatRoomMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var members []models.ChatRoomMember
	for key, m := range s.members {
		if key.chatID == chatID && m.Status == models.MemberApproved {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID.String() < members[j].UserID.String()
	})
	return members, nil
}

func (s *MemoryStore) CreateMessage(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = *msg
	return nil
}

func (s *MemoryStore) GetMessage(id uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return &m, nil
}

func messageOlder(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (s *MemoryStore) ListMessagesBefore(chatID uuid.UUID, before *models.Message, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []models.Message
	for _, m := range s.messages {
		if m.ChatID != chatID {
			continue
		}
		if before != nil && !messageOlder(m, *before) {
			continue
		}
		msgs = append(msgs, m)
	}
	// От новых к старым, как этого ждёт сервис.
	sort.Slice(msgs, func(i, j int) bool { return messageOlder(msgs[j], msgs[i]) })
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *MemoryStore) OldestMessageID(chatID uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *models.Message
	for id := range s.messages {
		m := s.messages[id]
		if m.ChatID != chatID {
			continue
		}
		if oldest == nil || messageOlder(m, *oldest) {
			oldest = &m
		}
	}
	if oldest == nil {
		return uuid.Nil, fmt.Errorf("room %s has no messages: %w", chatID, ErrNotFound)
	}
	return oldest.ID, nil
}

func (s *MemoryStore) MarkUnreadExcept(chatID, authorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, r := range s.reads {
		if key.chatID == chatID && key.userID != authorID {
			r.Unread = true
			s.reads[key] = r
		}
	}
	return nil
}

func (s *MemoryStore) GetRead(chatID, userID uuid.UUID) (*models.ChatRoomRead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reads[memberKey{userID: userID, chatID: chatID}]
	if !ok {
		return nil, fmt.Errorf("read status (%s, %s): %w", userID, chatID, ErrNotFound)
	}
	return &r, nil
}

func (s *MemoryStore) MarkRead(chatID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{userID: userID, chatID: chatID}
	if r, ok := s.reads[key]; ok {
		r.Unread = false
		s.reads[key] = r
	}
	return nil
}
