package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medassist-ai/internal/calendar"
	"github.com/wolfman30/medassist-ai/internal/conversation"
	"github.com/wolfman30/medassist-ai/internal/http/handlers"
	"github.com/wolfman30/medassist-ai/internal/sessions"
)

type stubLLM struct{}

func (stubLLM) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	return conversation.LLMResponse{Text: "hello"}, nil
}

type memStore struct {
	cal calendar.Calendar
}

func (s *memStore) Load(ctx context.Context) (calendar.Calendar, error) {
	if s.cal == nil {
		return calendar.Calendar{}, nil
	}
	return s.cal.Clone(), nil
}

func (s *memStore) Save(ctx context.Context, cal calendar.Calendar) error {
	s.cal = cal.Clone()
	return nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	alloc, err := calendar.NewAllocator(&memStore{}, calendar.DefaultHours(), nil, nil)
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	svc := conversation.NewService(stubLLM{}, alloc, conversation.ServiceConfig{ModelID: "test"}, nil, nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := sessions.NewStore(client, time.Hour, nil)

	return New(&Config{
		ChatHandler:     handlers.NewChatHandler(svc, store, nil, nil, "guest"),
		AdminAuthSecret: "secret",
	})
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"message":"hi"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat message: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("appointments: expected 200, got %d", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
