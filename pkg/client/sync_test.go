package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type syncFixture struct {
	orchestrator *Orchestrator
	queue        *OutboundQueue
	cache        *MessageCache
	chatID       uuid.UUID
	userID       uuid.UUID
	history      []Message
}

// newSyncFixture поднимает сервер с историей из двух сообщений и
// собирает оркестратор поверх in-memory хранилища.
func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	chatID := uuid.New()
	userID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []Message{
		{ID: uuid.New(), ChatID: chatID, CreatedBy: userID, Content: "earlier", CreatedAt: base},
		{ID: uuid.New(), ChatID: chatID, CreatedBy: userID, Content: "later", CreatedAt: base.Add(time.Minute)},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			json.NewEncoder(w).Encode(MessagesPage{Messages: history, HasMore: false})

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			var req struct {
				Text string `json:"text"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Message{
				ID:        uuid.New(),
				ChatID:    chatID,
				CreatedBy: userID,
				Content:   req.Text,
				CreatedAt: base.Add(2 * time.Minute),
			})

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	api := NewAPI(server.URL, "token", userID)
	storage := NewMemoryStorage()
	cache := NewMessageCache(storage)
	queue := NewOutboundQueue(storage, api).WithGracePeriod(10 * time.Millisecond)

	return &syncFixture{
		orchestrator: NewOrchestrator(api, queue, cache, nil),
		queue:        queue,
		cache:        cache,
		chatID:       chatID,
		userID:       userID,
		history:      history,
	}
}

func waitForTimeline(t *testing.T, f *syncFixture, ok func([]CachedMessage) bool) []CachedMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		timeline, err := f.orchestrator.Timeline(f.chatID)
		if err != nil {
			t.Fatalf("Timeline: %v", err)
		}
		if ok(timeline) {
			return timeline
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeline never reached the expected state: %+v", timeline)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOrchestratorOpenRoom(t *testing.T) {
	f := newSyncFixture(t)

	// Кэш уже держит одно из серверных сообщений: merge не дублирует.
	if err := f.cache.AddMessage(f.chatID, CachedMessage{
		ID:        f.history[0].ID,
		ChatID:    f.chatID,
		CreatedBy: f.userID,
		Content:   f.history[0].Content,
		CreatedAt: f.history[0].CreatedAt,
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	timeline, err := f.orchestrator.OpenRoom(f.chatID)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	if len(timeline) != 2 {
		t.Fatalf("timeline = %d messages, want 2", len(timeline))
	}
	if timeline[0].Content != "earlier" || timeline[1].Content != "later" {
		t.Errorf("order = [%s, %s]", timeline[0].Content, timeline[1].Content)
	}
}

func TestOrchestratorOptimisticSend(t *testing.T) {
	f := newSyncFixture(t)
	f.queue.SetOnline(false)

	tempID, err := f.orchestrator.Send(f.chatID, "offline draft")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	timeline, err := f.orchestrator.Timeline(f.chatID)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("timeline = %d, want the optimistic entry", len(timeline))
	}
	optimistic := timeline[0]
	if optimistic.TempID != tempID || optimistic.Status != StatusPending || optimistic.ID != uuid.Nil {
		t.Errorf("optimistic entry = %+v", optimistic)
	}

	// Возврат в онлайн: очередь досылает, кэш сверяет tempId → serverId.
	f.queue.SetOnline(true)

	timeline = waitForTimeline(t, f, func(tl []CachedMessage) bool {
		return len(tl) == 1 && tl[0].ID != uuid.Nil
	})
	confirmed := timeline[0]
	if confirmed.TempID != tempID {
		t.Errorf("tempId = %q, want %q preserved through reconcile", confirmed.TempID, tempID)
	}
	if confirmed.Status != "" {
		t.Errorf("status = %q, want cleared", confirmed.Status)
	}
	if confirmed.Content != "offline draft" {
		t.Errorf("content = %q", confirmed.Content)
	}
}

func TestOrchestratorFailedSend(t *testing.T) {
	chatID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "rejected"})
	}))
	t.Cleanup(server.Close)

	api := NewAPI(server.URL, "token", uuid.New())
	storage := NewMemoryStorage()
	cache := NewMessageCache(storage)
	queue := NewOutboundQueue(storage, api)
	orchestrator := NewOrchestrator(api, queue, cache, nil)

	queue.SetOnline(false)
	tempID, err := orchestrator.Send(chatID, "doomed")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	queue.SetOnline(true)

	deadline := time.Now().Add(2 * time.Second)
	for {
		timeline, err := orchestrator.Timeline(chatID)
		if err != nil {
			t.Fatalf("Timeline: %v", err)
		}
		if len(timeline) == 1 && timeline[0].Status == StatusFailed {
			if timeline[0].TempID != tempID {
				t.Errorf("tempId = %q, want %q", timeline[0].TempID, tempID)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("entry never marked failed: %+v", timeline)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOrchestratorInboundMessage(t *testing.T) {
	f := newSyncFixture(t)

	var notified int
	f.orchestrator.OnTimeline(func(roomID uuid.UUID) {
		if roomID == f.chatID {
			notified++
		}
	})

	inbound := Message{
		ID:        uuid.New(),
		ChatID:    f.chatID,
		CreatedBy: uuid.New(),
		Content:   "from peer",
		CreatedAt: time.Now(),
	}
	f.orchestrator.handleInbound(f.chatID, inbound)
	// Повтор того же события по каналу не дублирует запись.
	f.orchestrator.handleInbound(f.chatID, inbound)

	timeline, err := f.orchestrator.Timeline(f.chatID)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("timeline = %d, want 1", len(timeline))
	}
	if timeline[0].Content != "from peer" {
		t.Errorf("content = %q", timeline[0].Content)
	}
	if notified == 0 {
		t.Error("timeline callback was not invoked")
	}
}

func TestOrchestratorLoadOlderStopsAtHistoryEnd(t *testing.T) {
	f := newSyncFixture(t)

	if _, err := f.orchestrator.OpenRoom(f.chatID); err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}

	// Сервер отдаёт hasMore=false: догрузка должна остановиться.
	more, err := f.orchestrator.LoadOlder(f.chatID)
	if err != nil {
		t.Fatalf("LoadOlder: %v", err)
	}
	if more {
		t.Error("LoadOlder past the history end must report no more pages")
	}
}
