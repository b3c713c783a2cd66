// Package compliance records an immutable audit trail of assistant activity
// for healthcare record-keeping.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audited event.
type AuditEventType string

const (
	// EventTurnCompleted is logged after every successful conversational turn.
	EventTurnCompleted AuditEventType = "chat.turn_completed"
	// EventBookingAttempted is logged for every booking attempt, whatever the outcome.
	EventBookingAttempted AuditEventType = "scheduling.booking_attempted"
	// EventModelUnavailable is logged when every model provider failed for a turn.
	EventModelUnavailable AuditEventType = "chat.model_unavailable"
	// EventSessionCleared is logged when a session's history is wiped.
	EventSessionCleared AuditEventType = "chat.session_cleared"
)

// AuditEvent is one immutable audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails carries event-specific fields.
type AuditDetails struct {
	// For booking attempts
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	// For completed turns
	InputChars int  `json:"input_chars,omitempty"`
	ReplyChars int  `json:"reply_chars,omitempty"`
	ModelDown  bool `json:"model_down,omitempty"`
}

// AuditService handles audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records one audit event. A nil-receiver service drops events so
// deployments without a database still run.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, user_id, session_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.UserID,
		nullString(event.SessionID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogTurnCompleted records a finished conversational turn.
func (s *AuditService) LogTurnCompleted(ctx context.Context, userID, sessionID string, inputChars, replyChars int) error {
	details := AuditDetails{InputChars: inputChars, ReplyChars: replyChars}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventTurnCompleted,
		UserID:    userID,
		SessionID: sessionID,
		Details:   detailsJSON,
	})
}

// LogBookingAttempted records one booking attempt and its outcome.
func (s *AuditService) LogBookingAttempted(ctx context.Context, userID, sessionID, date, slot, outcome string) error {
	details := AuditDetails{Date: date, Time: slot, Outcome: outcome}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventBookingAttempted,
		UserID:    userID,
		SessionID: sessionID,
		Details:   detailsJSON,
	})
}

// LogModelUnavailable records a turn the model could not serve.
func (s *AuditService) LogModelUnavailable(ctx context.Context, userID, sessionID string) error {
	details := AuditDetails{ModelDown: true}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventModelUnavailable,
		UserID:    userID,
		SessionID: sessionID,
		Details:   detailsJSON,
	})
}

// LogSessionCleared records a session wipe.
func (s *AuditService) LogSessionCleared(ctx context.Context, userID, sessionID string) error {
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventSessionCleared,
		UserID:    userID,
		SessionID: sessionID,
	})
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("compliance: audit database not configured")
	}

	query := `
		SELECT id, event_type, user_id, session_id, details, created_at
		FROM audit_events
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.SessionID != "" {
		query += fmt.Sprintf(" AND session_id = $%d", argIdx)
		args = append(args, filter.SessionID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var sessionID sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &sessionID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.SessionID = sessionID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}
	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	UserID    string
	SessionID string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
