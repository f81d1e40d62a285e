package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/chat"
	"github.com/thereayou/roomline/internal/models"
	"gorm.io/gorm"
)

// notFound переводит gorm.ErrRecordNotFound в сентинел сервиса.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, chat.ErrNotFound)
	}
	return err
}

// CreateRoomWithAdmin создаёт комнату, approved-членство админа и его
// read-строку в одной транзакции.
func (d *Database) CreateRoomWithAdmin(room *models.ChatRoom) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}

		member := models.ChatRoomMember{
			UserID:    room.AdminID,
			ChatID:    room.ID,
			Status:    models.MemberApproved,
			Timestamp: room.CreatedAt,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		read := models.ChatRoomRead{UserID: room.AdminID, ChatID: room.ID, Unread: true}
		return tx.Create(&read).Error
	})
}

func (d *Database) GetRoom(id uuid.UUID) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := d.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "room "+id.String())
	}
	return &room, nil
}

func (d *Database) TouchRoomActivity(id uuid.UUID, lastMessage string, at time.Time) error {
	return d.db.Model(&models.ChatRoom{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_message": lastMessage, "updated_at": at}).Error
}

func (d *Database) SetRoomAdmin(chatID, newAdminID uuid.UUID) error {
	return d.db.Model(&models.ChatRoom{}).
		Where("id = ?", chatID).
		Update("admin_id", newAdminID).Error
}

// TransferAdminAndRemove переназначает админа и удаляет членство и
// read-строку уходящего одной транзакцией.
func (d *Database) TransferAdminAndRemove(chatID, newAdminID, leaverID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ChatRoom{}).
			Where("id = ?", chatID).
			Update("admin_id", newAdminID).Error
		if err != nil {
			return err
		}

		err = tx.Delete(&models.ChatRoomMember{}, "chat_id = ? AND user_id = ?", chatID, leaverID).Error
		if err != nil {
			return err
		}

		return tx.Delete(&models.ChatRoomRead{}, "chat_id = ? AND user_id = ?", chatID, leaverID).Error
	})
}

// DeleteRoomCascade удаляет комнату вместе с сообщениями, членствами
// и read-строками.
func (d *Database) DeleteRoomCascade(chatID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Message{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ChatRoomMember{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ChatRoomRead{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatRoom{}, "id = ?", chatID).Error
	})
}

func (d *Database) ListRoomsForUser(userID uuid.UUID, before *models.ChatRoom, limit int) ([]models.ChatRoom, error) {
	query := d.db.
		Joins("JOIN chat_room_members m ON m.chat_id = chat_rooms.id").
		Where("m.user_id = ? AND m.status = ?", userID, models.MemberApproved)

	if before != nil {
		query = query.Where(
			"chat_rooms.updated_at < ? OR (chat_rooms.updated_at = ? AND chat_rooms.id < ?)",
			before.UpdatedAt, before.UpdatedAt, before.ID,
		)
	}

	var rooms []models.ChatRoom
	err := query.
		Order("chat_rooms.updated_at DESC, chat_rooms.id DESC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
