package client

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxPerRoom = 1000
	defaultMaxRoomAge = 30 * 24 * time.Hour
)

// MessageCache — durable упорядоченная история сообщений по комнатам
// с дедупликацией и вытеснением по квоте.
type MessageCache struct {
	storage Storage

	maxPerRoom int
	maxRoomAge time.Duration
	now        func() time.Time

	mu sync.Mutex
}

func NewMessageCache(storage Storage) *MessageCache {
	return &MessageCache{
		storage:    storage,
		maxPerRoom: defaultMaxPerRoom,
		maxRoomAge: defaultMaxRoomAge,
		now:        time.Now,
	}
}

// cachedOlder — порядок ленты: (createdAt, id).
func cachedOlder(a, b CachedMessage) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// sameMessage — дедупликация по serverId-или-tempId.
func sameMessage(a, b CachedMessage) bool {
	if a.ID != uuid.Nil && a.ID == b.ID {
		return true
	}
	return a.TempID != "" && a.TempID == b.TempID
}

// AddMessage вставляет сообщение с дедупликацией и пересортировкой.
// При нехватке места выполняется cleanup и одна повторная попытка
// записи, после чего сообщение молча отбрасывается.
func (c *MessageCache) AddMessage(chatID uuid.UUID, msg CachedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	history, err := c.storage.LoadHistory(chatID)
	if err != nil {
		return err
	}

	for _, existing := range history {
		if sameMessage(existing, msg) {
			return nil
		}
	}

	history = append(history, msg)
	sort.Slice(history, func(i, j int) bool { return cachedOlder(history[i], history[j]) })

	return c.saveWithCleanup(chatID, history)
}

// UpdateMessage сливает подтверждённые сервером поля в существующую
// запись по tempId, сохраняя tempId как ключ связи с очередью.
func (c *MessageCache) UpdateMessage(chatID uuid.UUID, tempID string, server Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	history, err := c.storage.LoadHistory(chatID)
	if err != nil {
		return err
	}

	for i := range history {
		if history[i].TempID != tempID {
			continue
		}
		history[i].ID = server.ID
		history[i].CreatedBy = server.CreatedBy
		history[i].Content = server.Content
		history[i].FileURL = server.FileURL
		history[i].FileType = server.FileType
		history[i].CreatedAt = server.CreatedAt
		history[i].Status = ""

		sort.Slice(history, func(a, b int) bool { return cachedOlder(history[a], history[b]) })
		return c.saveWithCleanup(chatID, history)
	}
	return nil
}

// MarkFailed помечает оптимистичную запись как неотправленную.
func (c *MessageCache) MarkFailed(chatID uuid.UUID, tempID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	history, err := c.storage.LoadHistory(chatID)
	if err != nil {
		return err
	}
	for i := range history {
		if history[i].TempID == tempID {
			history[i].Status = StatusFailed
			return c.saveWithCleanup(chatID, history)
		}
	}
	return nil
}

// Messages возвращает историю комнаты в порядке отображения.
func (c *MessageCache) Messages(chatID uuid.UUID) ([]CachedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storage.LoadHistory(chatID)
}

func (c *MessageCache) saveWithCleanup(chatID uuid.UUID, history []CachedMessage) error {
	err := c.storage.SaveHistory(chatID, history)
	if err == nil {
		c.touchMeta(chatID, history)
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	c.cleanupLocked()

	if len(history) > c.maxPerRoom {
		history = history[len(history)-c.maxPerRoom:]
	}
	if err := c.storage.SaveHistory(chatID, history); err != nil {
		// Повтор не удался — запись молча отбрасывается.
		log.Printf("message cache: dropping write for room %s: %v", chatID, err)
		return nil
	}
	c.touchMeta(chatID, history)
	return nil
}

// Cleanup вытесняет комнаты без обновлений дольше 30 дней и усекает
// остальные истории до свежайших 1000 записей.
func (c *MessageCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *MessageCache) cleanupLocked() {
	meta, err := c.storage.LoadMeta()
	if err != nil {
		return
	}

	cutoff := c.now().Add(-c.maxRoomAge)
	for key, m := range meta {
		roomID, err := uuid.Parse(key)
		if err != nil {
			delete(meta, key)
			continue
		}

		if m.UpdatedAt.Before(cutoff) {
			if err := c.storage.DeleteHistory(roomID); err == nil {
				delete(meta, key)
			}
			continue
		}

		if m.Count > c.maxPerRoom {
			history, err := c.storage.LoadHistory(roomID)
			if err != nil {
				continue
			}
			if len(history) > c.maxPerRoom {
				history = history[len(history)-c.maxPerRoom:]
				if err := c.storage.SaveHistory(roomID, history); err == nil {
					m.Count = len(history)
					meta[key] = m
				}
			}
		}
	}

	if err := c.storage.SaveMeta(meta); err != nil {
		log.Printf("message cache: meta save failed: %v", err)
	}
}

func (c *MessageCache) touchMeta(chatID uuid.UUID, history []CachedMessage) {
	meta, err := c.storage.LoadMeta()
	if err != nil {
		return
	}

	m := meta[chatID.String()]
	m.Count = len(history)
	m.UpdatedAt = c.now()
	if len(history) > 0 {
		m.LastMessageAt = history[len(history)-1].CreatedAt
	}
	meta[chatID.String()] = m

	if err := c.storage.SaveMeta(meta); err != nil {
		log.Printf("message cache: meta save failed: %v", err)
	}
}
