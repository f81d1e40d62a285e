package models

import (
	"github.com/google/uuid"
	"time"
)

type ChatRoom struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	AdminID     uuid.UUID `gorm:"type:uuid;not null"`
	AvatarColor string    `gorm:"not null"`
	AvatarText  string    `gorm:"not null"`
	LastMessage string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Связи
	Messages []Message `gorm:"foreignKey:ChatID"`
}
