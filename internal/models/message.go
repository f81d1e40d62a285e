package models

import (
	"github.com/google/uuid"
	"time"
)

// Message неизменяемо после создания, история комнаты append-only.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"not null"`
	FileURL   string
	FileType  string
	CreatedAt time.Time

	// Связи
	User User `gorm:"foreignKey:CreatedBy"`
}
