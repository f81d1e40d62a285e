package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

func (d *Database) GetRead(chatID, userID uuid.UUID) (*models.ChatRoomRead, error) {
	var read models.ChatRoomRead
	err := d.db.First(&read, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("read status (%s, %s)", userID, chatID))
	}
	return &read, nil
}

// MarkUnreadExcept — один батчевый UPDATE по всем read-строкам комнаты,
// автор сообщения исключается.
func (d *Database) MarkUnreadExcept(chatID, authorID uuid.UUID) error {
	return d.db.Model(&models.ChatRoomRead{}).
		Where("chat_id = ? AND user_id != ?", chatID, authorID).
		Update("unread", true).Error
}

func (d *Database) MarkRead(chatID, userID uuid.UUID) error {
	return d.db.Model(&models.ChatRoomRead{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("unread", false).Error
}
