package models

import (
	"github.com/google/uuid"
	"time"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberApproved MemberStatus = "approved"
)

// ChatRoomMember — строка членства. Отклонённая заявка не хранится,
// её строка удаляется сразу.
type ChatRoomMember struct {
	UserID    uuid.UUID    `gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Status    MemberStatus `gorm:"not null;check:status IN ('pending','approved')"`
	Timestamp time.Time    // время последнего перехода статуса
}
