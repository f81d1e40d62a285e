package dto

import (
	"github.com/google/uuid"
	"time"
)

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	AdminID     string `json:"adminId" binding:"required"`
	AvatarColor string `json:"avatarColor" binding:"required"`
	AvatarText  string `json:"avatarText" binding:"required"`
	Description string `json:"description"`
	LastMessage string `json:"lastMessage"`
}

type JoinRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type MemberDecisionRequest struct {
	UserID string `json:"userId" binding:"required"`
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

type ChangeAdminRequest struct {
	NewAdminID string `json:"newAdminId" binding:"required"`
}

type SendMessageRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"userId" binding:"required"`
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

// MessageResponse — серверная форма сообщения, её же клиент кэширует.
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chatId"`
	CreatedBy uuid.UUID `json:"createdBy"`
	Content   string    `json:"content"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessagesPageResponse struct {
	Messages []MessageResponse `json:"messages"`
	Cursor   *uuid.UUID        `json:"cursor"`
	HasMore  bool              `json:"hasMore"`
}

type RoomResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AdminID     uuid.UUID `json:"adminId"`
	AvatarColor string    `json:"avatarColor"`
	AvatarText  string    `json:"avatarText"`
	LastMessage string    `json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RoomsPageResponse struct {
	ChatRooms []RoomResponse `json:"chatRooms"`
	Cursor    *uuid.UUID     `json:"cursor"`
	HasMore   bool           `json:"hasMore"`
}
