package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

// Store — внедряемый бэкенд персистентности сервиса. Методы Get* возвращают
// ErrNotFound, если строки нет; остальные ошибки отдаются как есть.
type Store interface {
	GetUser(id uuid.UUID) (*models.User, error)

	// CreateRoomWithAdmin атомарно создаёт комнату, approved-членство админа
	// и его read-строку (unread=true).
	CreateRoomWithAdmin(room *models.ChatRoom) error
	GetRoom(id uuid.UUID) (*models.ChatRoom, error)
	// TouchRoomActivity обновляет денормализованное last_message и updated_at.
	TouchRoomActivity(id uuid.UUID, lastMessage string, at time.Time) error
	SetRoomAdmin(chatID, newAdminID uuid.UUID) error
	// TransferAdminAndRemove в одной транзакции переназначает админа и
	// удаляет членство и read-строку уходящего.
	TransferAdminAndRemove(chatID, newAdminID, leaverID uuid.UUID) error
	// DeleteRoomCascade удаляет комнату вместе с сообщениями, членствами
	// и read-строками.
	DeleteRoomCascade(chatID uuid.UUID) error
	// ListRoomsForUser — комнаты с approved-членством пользователя по
	// убыванию (updated_at, id), строго старше before в этом порядке
	// (nil = свежайшая страница). id разрывает равенство updated_at,
	// чтобы страницы не пропускали комнаты с одинаковой активностью.
	ListRoomsForUser(userID uuid.UUID, before *models.ChatRoom, limit int) ([]models.ChatRoom, error)

	GetMember(chatID, userID uuid.UUID) (*models.ChatRoomMember, error)
	CreateMember(m *models.ChatRoomMember) error
	// ApproveMember переводит статус в approved, обновляет timestamp и
	// создаёт read-строку (unread=true) в одной транзакции.
	ApproveMember(chatID, userID uuid.UUID, at time.Time) error
	DeleteMember(chatID, userID uuid.UUID) error
	ListApprovedMembers(chatID uuid.UUID) ([]models.ChatRoomMember, error)

	CreateMessage(msg *models.Message) error
	GetMessage(id uuid.UUID) (*models.Message, error)
	// ListMessagesBefore — сообщения строго старше before по (created_at, id),
	// created_at по убыванию. before == nil даёт свежайшую страницу.
	ListMessagesBefore(chatID uuid.UUID, before *models.Message, limit int) ([]models.Message, error)
	OldestMessageID(chatID uuid.UUID) (uuid.UUID, error)
	// MarkUnreadExcept одним батчевым UPDATE ставит unread=true всем
	// read-строкам комнаты, кроме автора.
	MarkUnreadExcept(chatID, authorID uuid.UUID) error

	GetRead(chatID, userID uuid.UUID) (*models.ChatRoomRead, error)
	MarkRead(chatID, userID uuid.UUID) error
}
