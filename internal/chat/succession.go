package chat

import (
	"strings"

	"github.com/google/uuid"
	"github.com/thereayou/roomline/internal/models"
)

// SuccessionPolicy выбирает преемника админа среди оставшихся approved-участников.
// Возвращает false, если преемника нет (комната подлежит удалению).
type SuccessionPolicy func(remaining []models.ChatRoomMember) (uuid.UUID, bool)

// LowestUserID — политика по умолчанию: лексикографически наименьший user_id.
func LowestUserID(remaining []models.ChatRoomMember) (uuid.UUID, bool) {
	if len(remaining) == 0 {
		return uuid.Nil, false
	}
	best := remaining[0].UserID
	for _, m := range remaining[1:] {
		if strings.Compare(m.UserID.String(), best.String()) < 0 {
			best = m.UserID
		}
	}
	return best, true
}

// MostRecentlyActive — альтернативная политика: участник с самым свежим
// timestamp перехода; при равенстве побеждает меньший user_id.
func MostRecentlyActive(remaining []models.ChatRoomMember) (uuid.UUID, bool) {
	if len(remaining) == 0 {
		return uuid.Nil, false
	}
	best := remaining[0]
	for _, m := range remaining[1:] {
		if m.Timestamp.After(best.Timestamp) ||
			(m.Timestamp.Equal(best.Timestamp) && strings.Compare(m.UserID.String(), best.UserID.String()) < 0) {
			best = m
		}
	}
	return best.UserID, true
}
