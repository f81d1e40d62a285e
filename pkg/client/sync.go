package client

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Orchestrator собирает единую ленту комнаты из четырёх источников:
// локального кеша, страниц истории с сервера, живых событий канала и
// оптимистичных записей очереди отправки.
type Orchestrator struct {
	api   *API
	queue *OutboundQueue
	cache *MessageCache
	rt    *RealtimeClient

	mu         sync.Mutex
	activeRoom uuid.UUID
	cursors    map[uuid.UUID]*uuid.UUID
	hasMore    map[uuid.UUID]bool

	onTimeline func(roomID uuid.UUID)
}

func NewOrchestrator(api *API, queue *OutboundQueue, cache *MessageCache, rt *RealtimeClient) *Orchestrator {
	o := &Orchestrator{
		api:     api,
		queue:   queue,
		cache:   cache,
		rt:      rt,
		cursors: make(map[uuid.UUID]*uuid.UUID),
		hasMore: make(map[uuid.UUID]bool),
	}

	queue.OnConfirmed(o.handleConfirmed)
	queue.OnFailed(o.handleFailed)
	if rt != nil {
		rt.OnMessage(o.handleInbound)
	}
	return o
}

// OnTimeline регистрирует колбэк об изменении ленты комнаты.
func (o *Orchestrator) OnTimeline(fn func(roomID uuid.UUID)) {
	o.onTimeline = fn
}

// OpenRoom делает комнату активной: лента сразу строится из кеша,
// затем подтягивается первая страница с сервера и оформляется подписка
// на живые события.
func (o *Orchestrator) OpenRoom(roomID uuid.UUID) ([]CachedMessage, error) {
	o.mu.Lock()
	o.activeRoom = roomID
	o.mu.Unlock()

	if o.rt != nil {
		if err := o.rt.JoinRoom(roomID); err != nil {
			log.Printf("sync: join room %s: %v", roomID, err)
		}
	}

	page, err := o.api.Messages(roomID, nil)
	if err != nil {
		// Оффлайн: показываем то, что есть в кеше.
		return o.cache.Messages(roomID)
	}
	o.mergePage(roomID, page)

	return o.cache.Messages(roomID)
}

// LoadOlder догружает следующую страницу истории вверх по ленте.
// Возвращает false, когда история исчерпана.
func (o *Orchestrator) LoadOlder(roomID uuid.UUID) (bool, error) {
	o.mu.Lock()
	cursor, seen := o.cursors[roomID]
	more := o.hasMore[roomID]
	o.mu.Unlock()

	if seen && !more {
		return false, nil
	}

	page, err := o.api.Messages(roomID, cursor)
	if err != nil {
		return false, err
	}
	o.mergePage(roomID, page)
	return page.HasMore, nil
}

// Send ставит сообщение в очередь и сразу добавляет оптимистичную
// запись в ленту.
func (o *Orchestrator) Send(roomID uuid.UUID, content string) (string, error) {
	queued, err := o.queue.Enqueue(roomID, content)
	if err != nil {
		return "", err
	}

	optimistic := CachedMessage{
		TempID:    queued.TempID,
		ChatID:    roomID,
		CreatedBy: o.api.UserID(),
		Content:   content,
		CreatedAt: queued.QueuedAt,
		Status:    StatusPending,
	}
	if err := o.cache.AddMessage(roomID, optimistic); err != nil {
		log.Printf("sync: cache optimistic %s: %v", queued.TempID, err)
	}
	o.notify(roomID)
	return queued.TempID, nil
}

// Timeline возвращает текущую ленту комнаты.
func (o *Orchestrator) Timeline(roomID uuid.UUID) ([]CachedMessage, error) {
	return o.cache.Messages(roomID)
}

// SetOnline переключает режим соединения: очередь начинает слив, а
// подписка активной комнаты восстанавливается.
func (o *Orchestrator) SetOnline(online bool) {
	o.queue.SetOnline(online)
	if !online || o.rt == nil {
		return
	}

	o.mu.Lock()
	active := o.activeRoom
	o.mu.Unlock()

	if err := o.rt.Connect(); err != nil {
		log.Printf("sync: reconnect: %v", err)
		return
	}
	if active != uuid.Nil {
		if err := o.rt.JoinRoom(active); err != nil {
			log.Printf("sync: rejoin %s: %v", active, err)
		}
	}
}

// mergePage вливает страницу истории в кеш. Дедупликация делается кешем
// по serverId, поэтому пересечение с живыми событиями безопасно.
func (o *Orchestrator) mergePage(roomID uuid.UUID, page *MessagesPage) {
	for _, m := range page.Messages {
		cached := CachedMessage{
			ID:        m.ID,
			ChatID:    m.ChatID,
			CreatedBy: m.CreatedBy,
			Content:   m.Content,
			FileURL:   m.FileURL,
			FileType:  m.FileType,
			CreatedAt: m.CreatedAt,
		}
		if err := o.cache.AddMessage(roomID, cached); err != nil {
			log.Printf("sync: cache page entry %s: %v", m.ID, err)
		}
	}

	o.mu.Lock()
	o.cursors[roomID] = page.Cursor
	o.hasMore[roomID] = page.HasMore
	o.mu.Unlock()

	o.notify(roomID)
}

func (o *Orchestrator) handleConfirmed(chatID uuid.UUID, tempID string, server Message) {
	if err := o.cache.UpdateMessage(chatID, tempID, server); err != nil {
		log.Printf("sync: reconcile %s: %v", tempID, err)
	}
	o.notify(chatID)
}

func (o *Orchestrator) handleFailed(chatID uuid.UUID, tempID string) {
	if err := o.cache.MarkFailed(chatID, tempID); err != nil {
		log.Printf("sync: mark failed %s: %v", tempID, err)
	}
	o.notify(chatID)
}

func (o *Orchestrator) handleInbound(roomID uuid.UUID, msg Message) {
	// Собственные подтверждения приходят и по каналу: кеш отсеет их по
	// serverId, проставленному при реконсиляции.
	cached := CachedMessage{
		ID:        msg.ID,
		ChatID:    roomID,
		CreatedBy: msg.CreatedBy,
		Content:   msg.Content,
		FileURL:   msg.FileURL,
		FileType:  msg.FileType,
		CreatedAt: msg.CreatedAt,
	}
	if cached.CreatedAt.IsZero() {
		cached.CreatedAt = time.Now()
	}
	if err := o.cache.AddMessage(roomID, cached); err != nil {
		log.Printf("sync: cache inbound %s: %v", msg.ID, err)
	}
	o.notify(roomID)
}

func (o *Orchestrator) notify(roomID uuid.UUID) {
	if o.onTimeline != nil {
		o.onTimeline(roomID)
	}
}
