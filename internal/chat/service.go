package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

const (
	DefaultMessagePageSize = 20
	DefaultRoomPageSize    = 10
)

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Service владеет жизненным циклом членства, персистентностью сообщений
// и unread-статусами. Бэкенд хранения внедряется через Store.
type Service struct {
	store         Store
	pickSuccessor SuccessionPolicy
}

func NewService(store Store) *Service {
	return &Service{store: store, pickSuccessor: LowestUserID}
}

// WithSuccessionPolicy подменяет политику выбора преемника админа.
func (s *Service) WithSuccessionPolicy(p SuccessionPolicy) *Service {
	s.pickSuccessor = p
	return s
}

type CreateRoomParams struct {
	Name        string
	Description string
	AdminID     uuid.UUID
	AvatarColor string
	AvatarText  string
}

// CreateRoom атомарно создаёт комнату, approved-членство админа и его
// read-строку.
func (s *Service) CreateRoom(p CreateRoomParams) (*models.ChatRoom, error) {
	switch {
	case p.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case p.AvatarColor == "" || p.AvatarText == "":
		return nil, fmt.Errorf("%w: avatar color and text are required", ErrValidation)
	case p.AdminID == uuid.Nil:
		return nil, fmt.Errorf("%w: admin id is required", ErrValidation)
	}

	if _, err := s.store.GetUser(p.AdminID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: admin user %s", ErrNotFound, p.AdminID)
		}
		return nil, err
	}

	now := time.Now()
	room := &models.ChatRoom{
		ID:          uuid.New(),
		Name:        p.Name,
		Description: p.Description,
		AdminID:     p.AdminID,
		AvatarColor: p.AvatarColor,
		AvatarText:  p.AvatarText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateRoomWithAdmin(room); err != nil {
		return nil, err
	}
	return room, nil
}

// RequestJoin идемпотентен: существующая строка членства в любом статусе
// означает no-op успех, дубликат не создаётся.
func (s *Service) RequestJoin(chatID, userID uuid.UUID) error {
	if _, err := s.store.GetRoom(chatID); err != nil {
		return err
	}

	_, err := s.store.GetMember(chatID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	return s.store.CreateMember(&models.ChatRoomMember{
		UserID:    userID,
		ChatID:    chatID,
		Status:    models.MemberPending,
		Timestamp: time.Now(),
	})
}

// DecideJoinRequest — только текущий админ. reject удаляет строку заявки,
// approve переводит её в approved и создаёт read-строку.
func (s *Service) DecideJoinRequest(chatID, userID uuid.UUID, decision string, actingUserID uuid.UUID) error {
	if decision != DecisionApproved && decision != DecisionRejected {
		return fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}

	room, err := s.store.GetRoom(chatID)
	if err != nil {
		return err
	}
	if room.AdminID != actingUserID {
		return fmt.Errorf("%w: only the room admin can decide join requests", ErrNotAuthorized)
	}

	if _, err := s.store.GetMember(chatID, userID); err != nil {
		return err
	}

	if decision == DecisionRejected {
		return s.store.DeleteMember(chatID, userID)
	}
	return s.store.ApproveMember(chatID, userID, time.Now())
}

// RemoveMember — только админ; удаляется только строка членства,
// read-строка не трогается.
func (s *Service) RemoveMember(chatID, userID, actingUserID uuid.UUID) error {
	room, err := s.store.GetRoom(chatID)
	if err != nil {
		return err
	}
	if room.AdminID != actingUserID {
		return fmt.Errorf("%w: only the room admin can remove members", ErrNotAuthorized)
	}
	return s.store.DeleteMember(chatID, userID)
}

// Leave обрабатывает уход участника. Уходящий админ передаёт права
// преемнику по политике; без преемника комната удаляется каскадом
// вместе с сообщениями, членствами и read-строками.
func (s *Service) Leave(chatID, userID uuid.UUID) error {
	room, err := s.store.GetRoom(chatID)
	if err != nil {
		return err
	}

	if room.AdminID != userID {
		return s.store.DeleteMember(chatID, userID)
	}

	members, err := s.store.ListApprovedMembers(chatID)
	if err != nil {
		return err
	}
	remaining := members[:0]
	for _, m := range members {
		if m.UserID != userID {
			remaining = append(remaining, m)
		}
	}

	successor, ok := s.pickSuccessor(remaining)
	if !ok {
		return s.store.DeleteRoomCascade(chatID)
	}
	return s.store.TransferAdminAndRemove(chatID, successor, userID)
}

func (s *Service) IsAdmin(chatID, userID uuid.UUID) (bool, error) {
	room, err := s.store.GetRoom(chatID)
	if err != nil {
		return false, err
	}
	return room.AdminID == userID, nil
}

// ChangeAdmin — явная передача прав. Новый админ обязан уже быть
// approved-участником.
func (s *Service) ChangeAdmin(chatID, newAdminID, actingUserID uuid.UUID) error {
	room, err := s.store.GetRoom(chatID)
	if err != nil {
		return err
	}
	if room.AdminID != actingUserID {
		return fmt.Errorf("%w: only the current admin can transfer the room", ErrNotAuthorized)
	}

	member, err := s.store.GetMember(chatID, newAdminID)
	if err != nil {
		return err
	}
	if member.Status != models.MemberApproved {
		return fmt.Errorf("%w: new admin must be an approved member", ErrValidation)
	}

	return s.store.SetRoomAdmin(chatID, newAdminID)
}

// CreateMessage вставляет сообщение, обновляет денормализованное
// last_message/updated_at комнаты и батчем ставит unread всем остальным
// approved-участникам. Вставка и fan-out — отдельные записи, не транзакция:
// устаревший unread при падении между ними допустим.
func (s *Service) CreateMessage(chatID, userID uuid.UUID, content, fileURL, fileType string) (*models.Message, error) {
	if content == "" && fileURL == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}

	if _, err := s.store.GetRoom(chatID); err != nil {
		return nil, err
	}

	member, err := s.store.GetMember(chatID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: sender is not a member of the room", ErrNotAuthorized)
		}
		return nil, err
	}
	if member.Status != models.MemberApproved {
		return nil, fmt.Errorf("%w: sender is not an approved member", ErrNotAuthorized)
	}

	msg := &models.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		CreatedBy: userID,
		Content:   content,
		FileURL:   fileURL,
		FileType:  fileType,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, err
	}

	preview := content
	if preview == "" {
		preview = fileURL
	}
	if err := s.store.TouchRoomActivity(chatID, preview, msg.CreatedAt); err != nil {
		return nil, err
	}
	if err := s.store.MarkUnreadExcept(chatID, userID); err != nil {
		return nil, err
	}

	return msg, nil
}

type MessagePage struct {
	Messages []models.Message
	Cursor   *uuid.UUID
	HasMore  bool
}

// ListMessages отдаёт pageSize свежайших сообщений старше cursor
// (nil = свежайшая страница) в порядке отображения, по возрастанию
// (created_at, id). HasMore вычисляется по вхождению глобально старейшего
// сообщения комнаты в страницу.
func (s *Service) ListMessages(chatID uuid.UUID, cursor *uuid.UUID, pageSize int) (*MessagePage, error) {
	if pageSize <= 0 {
		pageSize = DefaultMessagePageSize
	}

	if _, err := s.store.GetRoom(chatID); err != nil {
		return nil, err
	}

	var before *models.Message
	if cursor != nil {
		m, err := s.store.GetMessage(*cursor)
		if err != nil {
			return nil, err
		}
		before = m
	}

	msgs, err := s.store.ListMessagesBefore(chatID, before, pageSize)
	if err != nil {
		return nil, err
	}
	// Запрос идёт от новых к старым, разворачиваем для отображения.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	page := &MessagePage{Messages: msgs}
	if len(msgs) > 0 {
		oldestInPage := msgs[0].ID
		page.Cursor = &oldestInPage
	}

	oldestID, err := s.store.OldestMessageID(chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return page, nil
		}
		return nil, err
	}
	page.HasMore = true
	for _, m := range msgs {
		if m.ID == oldestID {
			page.HasMore = false
			break
		}
	}
	return page, nil
}

type RoomPage struct {
	Rooms   []models.ChatRoom
	Cursor  *uuid.UUID
	HasMore bool
}

// ListRoomsForUser — комнаты с approved-членством пользователя по убыванию
// (updated_at, id); курсор — id последней отданной комнаты.
func (s *Service) ListRoomsForUser(userID uuid.UUID, cursor *uuid.UUID, pageSize int) (*RoomPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultRoomPageSize
	}

	var before *models.ChatRoom
	if cursor != nil {
		room, err := s.store.GetRoom(*cursor)
		if err != nil {
			return nil, err
		}
		before = room
	}

	rooms, err := s.store.ListRoomsForUser(userID, before, pageSize)
	if err != nil {
		return nil, err
	}

	page := &RoomPage{Rooms: rooms, HasMore: len(rooms) == pageSize}
	if len(rooms) > 0 {
		last := rooms[len(rooms)-1].ID
		page.Cursor = &last
	}
	return page, nil
}

// ReadStatus возвращает текущий unread-флаг пары (user, chat).
func (s *Service) ReadStatus(chatID, userID uuid.UUID) (bool, error) {
	read, err := s.store.GetRead(chatID, userID)
	if err != nil {
		return false, err
	}
	return read.Unread, nil
}

// MarkRead сбрасывает unread. unread=true ставит только CreateMessage,
// unread=false — только явное действие пользователя.
func (s *Service) MarkRead(chatID, userID uuid.UUID) error {
	return s.store.MarkRead(chatID, userID)
}
