package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
	"gorm.io/gorm"
)

func (d *Database) GetMember(chatID, userID uuid.UUID) (*models.ChatRoomMember, error) {
	var member models.ChatRoomMember
	err := d.db.First(&member, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("member (%s, %s)", userID, chatID))
	}
	return &member, nil
}

func (d *Database) CreateMember(m *models.ChatRoomMember) error {
	return d.db.Create(m).Error
}

// ApproveMember переводит заявку в approved и создаёт read-строку
// в одной транзакции.
func (d *Database) ApproveMember(chatID, userID uuid.UUID, at time.Time) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ChatRoomMember{}).
			Where("chat_id = ? AND user_id = ?", chatID, userID).
			Updates(map[string]interface{}{"status": models.MemberApproved, "timestamp": at}).Error
		if err != nil {
			return err
		}

		read := models.ChatRoomRead{UserID: userID, ChatID: chatID, Unread: true}
		return tx.Create(&read).Error
	})
}

func (d *Database) DeleteMember(chatID, userID uuid.UUID) error {
	return d.db.Delete(&models.ChatRoomMember{}, "chat_id = ? AND user_id = ?", chatID, userID).Error
}

func (d *Database) ListApprovedMembers(chatID uuid.UUID) ([]models.ChatRoomMember, error) {
	var members []models.ChatRoomMember
	err := d.db.
		Where("chat_id = ? AND status = ?", chatID, models.MemberApproved).
		Order("user_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
