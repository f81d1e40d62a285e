package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

func (d *Database) CreateMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

func (d *Database) GetMessage(id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "message "+id.String())
	}
	return &message, nil
}

// ListMessagesBefore — keyset-пагинация по (created_at, id), от новых к старым.
func (d *Database) ListMessagesBefore(chatID uuid.UUID, before *models.Message, limit int) ([]models.Message, error) {
	query := d.db.Where("chat_id = ?", chatID)

	if before != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			before.CreatedAt, before.CreatedAt, before.ID,
		)
	}

	var messages []models.Message
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Preload("User").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (d *Database) OldestMessageID(chatID uuid.UUID) (uuid.UUID, error) {
	var message models.Message
	err := d.db.
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		First(&message).Error
	if err != nil {
		return uuid.Nil, notFound(err, "oldest message of room "+chatID.String())
	}
	return message.ID, nil
}
