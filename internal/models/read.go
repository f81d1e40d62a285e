package models

import "github.com/google/uuid"

// ChatRoomRead — флаг непрочитанного для пары (user, chat).
// Создаётся при одобрении членства.
type ChatRoomRead struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Unread bool      `gorm:"not null"`
}
