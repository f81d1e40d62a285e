package client

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxRetries    = 5
	defaultGracePeriod   = 3 * time.Second
	defaultDrainInterval = 10 * time.Second
)

// OutboundQueue — durable FIFO неподтверждённых исходящих сообщений.
// Гарантия at-least-once: гонка повтора с ручным drain может отправить
// дубликат, дедупликацию делает кэш получателя.
type OutboundQueue struct {
	storage Storage
	api     *API
	rt      *RealtimeClient

	maxRetries  int
	gracePeriod time.Duration

	mu       sync.Mutex
	draining bool
	online   bool
	stopCh   chan struct{}
	stopOnce sync.Once

	onConfirmed func(chatID uuid.UUID, tempID string, server Message)
	onFailed    func(chatID uuid.UUID, tempID string)
}

func NewOutboundQueue(storage Storage, api *API) *OutboundQueue {
	return &OutboundQueue{
		storage:     storage,
		api:         api,
		maxRetries:  defaultMaxRetries,
		gracePeriod: defaultGracePeriod,
		online:      true,
		stopCh:      make(chan struct{}),
	}
}

// WithRealtime включает best-effort дублирование подтверждённых
// сообщений в канал.
func (q *OutboundQueue) WithRealtime(rt *RealtimeClient) *OutboundQueue {
	q.rt = rt
	return q
}

// WithGracePeriod задаёт задержку удаления sent-записи.
func (q *OutboundQueue) WithGracePeriod(d time.Duration) *OutboundQueue {
	q.gracePeriod = d
	return q
}

// OnConfirmed регистрирует callback подтверждения (tempId → serverId).
func (q *OutboundQueue) OnConfirmed(fn func(chatID uuid.UUID, tempID string, server Message)) {
	q.onConfirmed = fn
}

// OnFailed регистрирует callback окончательного отказа.
func (q *OutboundQueue) OnFailed(fn func(chatID uuid.UUID, tempID string)) {
	q.onFailed = fn
}

// Start запускает периодический drain.
func (q *OutboundQueue) Start(interval time.Duration) {
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-q.stopCh:
				return
			case <-ticker.C:
				q.Drain()
			}
		}
	}()
}

func (q *OutboundQueue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
}

// SetOnline переключает сетевое состояние; возврат в онлайн запускает drain.
func (q *OutboundQueue) SetOnline(online bool) {
	q.mu.Lock()
	changed := q.online != online
	q.online = online
	q.mu.Unlock()

	if changed && online {
		q.Drain()
	}
}

// Enqueue ставит сообщение в очередь со статусом pending и сразу
// запускает drain.
func (q *OutboundQueue) Enqueue(chatID uuid.UUID, content string) (*QueuedMessage, error) {
	qm := QueuedMessage{
		TempID:   uuid.NewString(),
		ChatID:   chatID,
		Content:  content,
		Status:   StatusPending,
		QueuedAt: time.Now(),
	}

	q.mu.Lock()
	queue, err := q.storage.LoadQueue()
	if err == nil {
		queue = append(queue, qm)
		err = q.storage.SaveQueue(queue)
	}
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go q.Drain()
	return &qm, nil
}

// Drain прогоняет все pending-записи под retry-кэпом. Булев guard
// не допускает перекрытия двух проходов; очередь — единственный
// источник истины по in-flight состоянию.
func (q *OutboundQueue) Drain() {
	q.mu.Lock()
	if q.draining || !q.online {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	queue, err := q.loadQueue()
	if err != nil {
		log.Printf("outbound queue: load failed: %v", err)
		return
	}

	for i := range queue {
		entry := queue[i]
		if entry.Status != StatusPending || entry.RetryCount >= q.maxRetries {
			continue
		}

		msg, err := q.api.SendMessage(entry.ChatID, entry.Content)
		if err != nil {
			var apiErr *APIError
			permanent := errors.As(err, &apiErr) && !apiErr.Transient()

			failed := false
			q.update(entry.TempID, func(e *QueuedMessage) {
				e.RetryCount++
				e.LastRetry = time.Now()
				if permanent || e.RetryCount >= q.maxRetries {
					e.Status = StatusFailed
					failed = true
				}
			})
			if failed && q.onFailed != nil {
				q.onFailed(entry.ChatID, entry.TempID)
			}
			continue
		}

		q.update(entry.TempID, func(e *QueuedMessage) {
			e.Status = StatusSent
			e.ServerID = &msg.ID
		})

		// Вторичное best-effort уведомление по каналу; доставку
		// гарантирует только REST-персистентность.
		if q.rt != nil {
			if err := q.rt.SendMessage(*msg, &entry.ChatID); err != nil {
				log.Printf("outbound queue: realtime emit failed: %v", err)
			}
		}

		if q.onConfirmed != nil {
			q.onConfirmed(entry.ChatID, entry.TempID, *msg)
		}

		// Запись живёт ещё grace-период, чтобы UI успел прочитать
		// переходное состояние sent.
		tempID := entry.TempID
		time.AfterFunc(q.gracePeriod, func() { q.remove(tempID) })
	}
}

func (q *OutboundQueue) loadQueue() ([]QueuedMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.storage.LoadQueue()
}

// update перечитывает очередь под мьютексом, правит запись по tempId и
// сохраняет актуальное состояние. Снимок прохода не персистится: запись,
// поставленная или удалённая во время in-flight запроса, не затирается.
func (q *OutboundQueue) update(tempID string, fn func(*QueuedMessage)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, err := q.storage.LoadQueue()
	if err != nil {
		log.Printf("outbound queue: load failed: %v", err)
		return
	}
	for i := range queue {
		if queue[i].TempID != tempID {
			continue
		}
		fn(&queue[i])
		if err := q.storage.SaveQueue(queue); err != nil {
			log.Printf("outbound queue: save failed: %v", err)
		}
		return
	}
}

func (q *OutboundQueue) remove(tempID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, err := q.storage.LoadQueue()
	if err != nil {
		return
	}
	filtered := queue[:0]
	for _, entry := range queue {
		if entry.TempID != tempID {
			filtered = append(filtered, entry)
		}
	}
	if err := q.storage.SaveQueue(filtered); err != nil {
		log.Printf("outbound queue: save failed: %v", err)
	}
}

// Entries возвращает снимок очереди.
func (q *OutboundQueue) Entries() ([]QueuedMessage, error) {
	return q.loadQueue()
}
