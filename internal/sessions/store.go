// Package sessions persists conversation contexts between HTTP requests so a
// patient can pick a chat back up from any instance of the API.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medassist-ai/internal/conversation"
)

// ErrNotFound reports an unknown or expired session id.
var ErrNotFound = fmt.Errorf("sessions: session not found")

// Store keeps one serialized conversation.Context per session in Redis.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *Store {
	if client == nil {
		panic("sessions: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("medassist.internal.sessions")
	}
	return &Store{redis: client, ttl: ttl, tracer: tracer}
}

// Save writes the context and refreshes the session's TTL.
func (s *Store) Save(ctx context.Context, c conversation.Context) error {
	ctx, span := s.tracer.Start(ctx, "sessions.save")
	defer span.End()

	data, err := json.Marshal(c)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to marshal context: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(c.SessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to persist context: %w", err)
	}
	return nil
}

// Load returns the stored context for sessionID, or ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (conversation.Context, error) {
	ctx, span := s.tracer.Start(ctx, "sessions.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return conversation.Context{}, ErrNotFound
		}
		span.RecordError(err)
		return conversation.Context{}, fmt.Errorf("sessions: failed to load context: %w", err)
	}

	var c conversation.Context
	if err := json.Unmarshal(data, &c); err != nil {
		span.RecordError(err)
		return conversation.Context{}, fmt.Errorf("sessions: failed to decode context: %w", err)
	}
	return c, nil
}

// Delete removes a session outright. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "sessions.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to delete context: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
