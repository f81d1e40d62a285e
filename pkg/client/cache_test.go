package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func cachedAt(t *testing.T, content string, at time.Time) CachedMessage {
	t.Helper()
	return CachedMessage{
		ID:        uuid.New(),
		ChatID:    uuid.Nil,
		CreatedBy: uuid.New(),
		Content:   content,
		CreatedAt: at,
	}
}

func TestCacheAddMessage(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chatID := uuid.New()

	t.Run("keeps the timeline sorted", func(t *testing.T) {
		cache := NewMessageCache(NewMemoryStorage())

		second := cachedAt(t, "second", base.Add(time.Minute))
		first := cachedAt(t, "first", base)
		for _, m := range []CachedMessage{second, first} {
			if err := cache.AddMessage(chatID, m); err != nil {
				t.Fatalf("AddMessage: %v", err)
			}
		}

		history, err := cache.Messages(chatID)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("len = %d, want 2", len(history))
		}
		if history[0].Content != "first" || history[1].Content != "second" {
			t.Errorf("order = [%s, %s]", history[0].Content, history[1].Content)
		}
	})

	t.Run("deduplicates by server id", func(t *testing.T) {
		cache := NewMessageCache(NewMemoryStorage())
		msg := cachedAt(t, "once", base)

		if err := cache.AddMessage(chatID, msg); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if err := cache.AddMessage(chatID, msg); err != nil {
			t.Fatalf("AddMessage duplicate: %v", err)
		}

		history, _ := cache.Messages(chatID)
		if len(history) != 1 {
			t.Errorf("len = %d, want 1 after duplicate insert", len(history))
		}
	})

	t.Run("deduplicates by temp id", func(t *testing.T) {
		cache := NewMessageCache(NewMemoryStorage())
		optimistic := CachedMessage{
			TempID:    "tmp-1",
			ChatID:    chatID,
			Content:   "pending",
			CreatedAt: base,
			Status:    StatusPending,
		}

		if err := cache.AddMessage(chatID, optimistic); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if err := cache.AddMessage(chatID, optimistic); err != nil {
			t.Fatalf("AddMessage duplicate: %v", err)
		}

		history, _ := cache.Messages(chatID)
		if len(history) != 1 {
			t.Errorf("len = %d, want 1", len(history))
		}
	})
}

func TestCacheUpdateMessage(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chatID := uuid.New()
	cache := NewMessageCache(NewMemoryStorage())

	optimistic := CachedMessage{
		TempID:    "tmp-1",
		ChatID:    chatID,
		Content:   "draft",
		CreatedAt: base,
		Status:    StatusPending,
	}
	if err := cache.AddMessage(chatID, optimistic); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	server := Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		CreatedBy: uuid.New(),
		Content:   "draft",
		CreatedAt: base.Add(2 * time.Second),
	}
	if err := cache.UpdateMessage(chatID, "tmp-1", server); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}

	history, err := cache.Messages(chatID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len = %d, want 1, reconcile must merge in place", len(history))
	}
	got := history[0]
	if got.ID != server.ID {
		t.Errorf("id = %s, want server id %s", got.ID, server.ID)
	}
	if got.TempID != "tmp-1" {
		t.Errorf("tempId = %q, must be preserved as the join key", got.TempID)
	}
	if got.Status != "" {
		t.Errorf("status = %q, want cleared after confirmation", got.Status)
	}
	if !got.CreatedAt.Equal(server.CreatedAt) {
		t.Errorf("createdAt = %v, want server time %v", got.CreatedAt, server.CreatedAt)
	}

	// Подтверждение, прилетевшее и по каналу, не создаёт дубликата.
	if err := cache.AddMessage(chatID, CachedMessage{
		ID:        server.ID,
		ChatID:    chatID,
		Content:   server.Content,
		CreatedAt: server.CreatedAt,
	}); err != nil {
		t.Fatalf("AddMessage echo: %v", err)
	}
	history, _ = cache.Messages(chatID)
	if len(history) != 1 {
		t.Errorf("len = %d after realtime echo, want 1", len(history))
	}

	t.Run("unknown temp id is a no-op", func(t *testing.T) {
		if err := cache.UpdateMessage(chatID, "missing", server); err != nil {
			t.Errorf("UpdateMessage: %v", err)
		}
	})
}

func TestCacheMarkFailed(t *testing.T) {
	chatID := uuid.New()
	cache := NewMessageCache(NewMemoryStorage())

	if err := cache.AddMessage(chatID, CachedMessage{
		TempID:    "tmp-1",
		ChatID:    chatID,
		Content:   "doomed",
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if err := cache.MarkFailed(chatID, "tmp-1"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	history, _ := cache.Messages(chatID)
	if history[0].Status != StatusFailed {
		t.Errorf("status = %q, want failed", history[0].Status)
	}
}

func TestCacheCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("evicts rooms idle beyond the age limit", func(t *testing.T) {
		storage := NewMemoryStorage()
		cache := NewMessageCache(storage)
		cache.now = func() time.Time { return now }

		staleRoom := uuid.New()
		freshRoom := uuid.New()
		if err := cache.AddMessage(staleRoom, cachedAt(t, "old", now.Add(-40*24*time.Hour))); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if err := cache.AddMessage(freshRoom, cachedAt(t, "new", now)); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}

		// Метаданные stale-комнаты старят руками: AddMessage ставит now.
		meta, err := storage.LoadMeta()
		if err != nil {
			t.Fatalf("LoadMeta: %v", err)
		}
		m := meta[staleRoom.String()]
		m.UpdatedAt = now.Add(-31 * 24 * time.Hour)
		meta[staleRoom.String()] = m
		if err := storage.SaveMeta(meta); err != nil {
			t.Fatalf("SaveMeta: %v", err)
		}

		cache.Cleanup()

		stale, _ := cache.Messages(staleRoom)
		if len(stale) != 0 {
			t.Errorf("stale room still holds %d messages", len(stale))
		}
		fresh, _ := cache.Messages(freshRoom)
		if len(fresh) != 1 {
			t.Errorf("fresh room was evicted")
		}
	})

	t.Run("truncates oversized rooms to the newest entries", func(t *testing.T) {
		storage := NewMemoryStorage()
		cache := NewMessageCache(storage)
		cache.now = func() time.Time { return now }
		cache.maxPerRoom = 10

		roomID := uuid.New()
		for i := 0; i < 15; i++ {
			msg := cachedAt(t, "bulk", now.Add(time.Duration(i)*time.Second))
			if err := cache.AddMessage(roomID, msg); err != nil {
				t.Fatalf("AddMessage(%d): %v", i, err)
			}
		}

		cache.Cleanup()

		history, _ := cache.Messages(roomID)
		if len(history) != 10 {
			t.Fatalf("len = %d, want 10", len(history))
		}
		// Остаются свежайшие записи.
		if !history[0].CreatedAt.Equal(now.Add(5 * time.Second)) {
			t.Errorf("oldest kept = %v, want the 6th message", history[0].CreatedAt)
		}
	})

	t.Run("quota pressure triggers cleanup and retry", func(t *testing.T) {
		storage := NewMemoryStorage()
		cache := NewMessageCache(storage)
		cache.now = func() time.Time { return now }

		victim := uuid.New()
		if err := cache.AddMessage(victim, cachedAt(t, "victim", now)); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		meta, _ := storage.LoadMeta()
		m := meta[victim.String()]
		m.UpdatedAt = now.Add(-31 * 24 * time.Hour)
		meta[victim.String()] = m
		if err := storage.SaveMeta(meta); err != nil {
			t.Fatalf("SaveMeta: %v", err)
		}

		// Квота вмещает одну комнату, но не две: запись во вторую
		// должна вытеснить первую и пройти со второй попытки.
		storage.Quota = 250

		active := uuid.New()
		if err := cache.AddMessage(active, cachedAt(t, "active", now)); err != nil {
			t.Fatalf("AddMessage under quota: %v", err)
		}

		evicted, _ := cache.Messages(victim)
		if len(evicted) != 0 {
			t.Errorf("idle room survived quota cleanup with %d messages", len(evicted))
		}
		kept, _ := cache.Messages(active)
		if len(kept) != 1 {
			t.Errorf("active room write was dropped")
		}
	})
}
