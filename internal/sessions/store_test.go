package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medassist-ai/internal/conversation"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour, nil), mr
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := conversation.NewContext(now).
		WithTurn(conversation.ChatRoleUser, "hello", now).
		WithAttempt(conversation.BookingAttempt{Date: "2026-09-02", Time: "10:00", Outcome: "booked"}).
		WithPreference("clinic", "downtown")

	if err := store.Save(ctx, c); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx, c.SessionID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.SessionID != c.SessionID {
		t.Fatalf("expected session %s, got %s", c.SessionID, loaded.SessionID)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].Content != "hello" {
		t.Fatalf("unexpected turns %v", loaded.Turns)
	}
	if len(loaded.Attempts) != 1 || loaded.Attempts[0].Outcome != "booked" {
		t.Fatalf("unexpected attempts %v", loaded.Attempts)
	}
	if loaded.Preferences["clinic"] != "downtown" {
		t.Fatalf("unexpected preferences %v", loaded.Preferences)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), "session_nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSaveSetsTTL(t *testing.T) {
	store, mr := newTestStore(t)

	c := conversation.NewContext(time.Now())
	if err := store.Save(context.Background(), c); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if ttl := mr.TTL("session:" + c.SessionID); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}
}

func TestStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	c := conversation.NewContext(time.Now())
	if err := store.Save(ctx, c); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, c.SessionID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(ctx, c.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.Delete(ctx, "session_missing"); err != nil {
		t.Fatalf("deleting absent session must not error: %v", err)
	}
}
