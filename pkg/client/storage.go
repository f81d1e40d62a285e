// Package client — офлайн-устойчивый клиент комнатного чата: durable
// исходящая очередь с повторами, локальный кэш истории с вытеснением
// и оркестратор, сводящий страницы, live-события и оптимистичные
// сообщения в одну ленту.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ErrQuotaExceeded сигнализирует о нехватке места в локальном хранилище.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

type QueueStatus string

const (
	StatusPending QueueStatus = "pending"
	StatusSent    QueueStatus = "sent"
	StatusFailed  QueueStatus = "failed"
)

// QueuedMessage — запись исходящей очереди. tempId связывает её
// с оптимистичной записью кэша до подтверждения сервером.
type QueuedMessage struct {
	TempID     string      `json:"tempId"`
	ChatID     uuid.UUID   `json:"chatId"`
	Content    string      `json:"content"`
	Status     QueueStatus `json:"status"`
	RetryCount int         `json:"retryCount"`
	QueuedAt   time.Time   `json:"queuedAt"`
	LastRetry  time.Time   `json:"lastRetry,omitempty"`
	ServerID   *uuid.UUID  `json:"serverId,omitempty"`
}

// CachedMessage — серверная форма сообщения плюс tempId для сверки
// с очередью. ID == uuid.Nil, пока сервер не подтвердил запись.
type CachedMessage struct {
	ID        uuid.UUID   `json:"id"`
	TempID    string      `json:"tempId,omitempty"`
	ChatID    uuid.UUID   `json:"chatId"`
	CreatedBy uuid.UUID   `json:"createdBy"`
	Content   string      `json:"content"`
	FileURL   string      `json:"fileUrl,omitempty"`
	FileType  string      `json:"fileType,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Status    QueueStatus `json:"status,omitempty"` // пусто = подтверждено
}

// RoomMeta — метаданные комнаты для решений о вытеснении.
type RoomMeta struct {
	LastMessageAt time.Time `json:"lastMessageAt"`
	Count         int       `json:"count"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Storage — сериализованное локальное хранилище клиента. Каждый метод
// читает или перезаписывает коллекцию целиком, частичной атомарности
// между очередью и историей нет.
type Storage interface {
	LoadQueue() ([]QueuedMessage, error)
	SaveQueue(queue []QueuedMessage) error

	LoadHistory(chatID uuid.UUID) ([]CachedMessage, error)
	SaveHistory(chatID uuid.UUID, history []CachedMessage) error
	DeleteHistory(chatID uuid.UUID) error

	LoadMeta() (map[string]RoomMeta, error)
	SaveMeta(meta map[string]RoomMeta) error
}

// MemoryStorage — потокобезопасное in-memory хранилище. Quota > 0
// ограничивает суммарный размер сериализованных историй в байтах.
type MemoryStorage struct {
	mu        sync.RWMutex
	Quota     int
	queue     []QueuedMessage
	histories map[string][]CachedMessage
	meta      map[string]RoomMeta
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		histories: make(map[string][]CachedMessage),
		meta:      make(map[string]RoomMeta),
	}
}

func (s *MemoryStorage) LoadQueue() ([]QueuedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QueuedMessage(nil), s.queue...), nil
}

func (s *MemoryStorage) SaveQueue(queue []QueuedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]QueuedMessage(nil), queue...)
	return nil
}

func (s *MemoryStorage) LoadHistory(chatID uuid.UUID) ([]CachedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CachedMessage(nil), s.histories[chatID.String()]...), nil
}

func (s *MemoryStorage) SaveHistory(chatID uuid.UUID, history []CachedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Quota > 0 {
		total := 0
		for key, h := range s.histories {
			if key == chatID.String() {
				continue
			}
			data, _ := json.Marshal(h)
			total += len(data)
		}
		data, _ := json.Marshal(history)
		if total+len(data) > s.Quota {
			return ErrQuotaExceeded
		}
	}

	s.histories[chatID.String()] = append([]CachedMessage(nil), history...)
	return nil
}

func (s *MemoryStorage) DeleteHistory(chatID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, chatID.String())
	return nil
}

func (s *MemoryStorage) LoadMeta() (map[string]RoomMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta := make(map[string]RoomMeta, len(s.meta))
	for k, v := range s.meta {
		meta[k] = v
	}
	return meta, nil
}

func (s *MemoryStorage) SaveMeta(meta map[string]RoomMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = make(map[string]RoomMeta, len(meta))
	for k, v := range meta {
		s.meta[k] = v
	}
	return nil
}

// FileStorage хранит очередь, истории и метаданные JSON-файлами
// в каталоге. Ошибка нехватки места переводится в ErrQuotaExceeded.
type FileStorage struct {
	mu  sync.Mutex
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStorage) load(name string, v interface{}) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *FileStorage) save(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		if isNoSpace(err) {
			return fmt.Errorf("%s: %w", name, ErrQuotaExceeded)
		}
		return err
	}
	return nil
}

func isNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

func (s *FileStorage) LoadQueue() ([]QueuedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var queue []QueuedMessage
	if err := s.load("queue.json", &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *FileStorage) SaveQueue(queue []QueuedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save("queue.json", queue)
}

func (s *FileStorage) LoadHistory(chatID uuid.UUID) ([]CachedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []CachedMessage
	if err := s.load("history-"+chatID.String()+".json", &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *FileStorage) SaveHistory(chatID uuid.UUID, history []CachedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save("history-"+chatID.String()+".json", history)
}

func (s *FileStorage) DeleteHistory(chatID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path("history-" + chatID.String() + ".json"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStorage) LoadMeta() (map[string]RoomMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := make(map[string]RoomMeta)
	if err := s.load("meta.json", &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *FileStorage) SaveMeta(meta map[string]RoomMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save("meta.json", meta)
}
