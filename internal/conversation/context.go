// Package conversation implements the chat side of the assistant: the
// per-session context, the model clients, and the turn pipeline that turns a
// user message into a reply and, when asked, a booked appointment.
package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Turn is one message in the conversation history.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// BookingAttempt records one scheduling attempt surfaced during the
// conversation, successful or not.
type BookingAttempt struct {
	Request string    `json:"request"`
	Date    string    `json:"date"`
	Time    string    `json:"time"`
	Outcome string    `json:"outcome"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Context is the full per-session conversation state. Values are treated as
// immutable: every mutation returns a fresh copy, so a failed turn can simply
// drop its candidate and keep the prior state.
type Context struct {
	SessionID    string            `json:"session_id"`
	SessionStart time.Time         `json:"session_start"`
	Turns        []Turn            `json:"conversation_history"`
	Attempts     []BookingAttempt  `json:"appointments"`
	Preferences  map[string]string `json:"user_preferences"`
	LastInput    time.Time         `json:"last_interaction"`
}

// NewContext starts a fresh session at now.
func NewContext(now time.Time) Context {
	return Context{
		SessionID:    fmt.Sprintf("session_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8]),
		SessionStart: now,
		Preferences:  map[string]string{},
	}
}

func (c Context) clone() Context {
	out := c
	out.Turns = append([]Turn(nil), c.Turns...)
	out.Attempts = append([]BookingAttempt(nil), c.Attempts...)
	out.Preferences = make(map[string]string, len(c.Preferences))
	for k, v := range c.Preferences {
		out.Preferences[k] = v
	}
	return out
}

// WithTurn returns a copy with one message appended.
func (c Context) WithTurn(role, content string, at time.Time) Context {
	out := c.clone()
	out.Turns = append(out.Turns, Turn{Role: role, Content: content, At: at})
	return out
}

// WithAttempt returns a copy with a booking attempt recorded.
func (c Context) WithAttempt(a BookingAttempt) Context {
	out := c.clone()
	out.Attempts = append(out.Attempts, a)
	return out
}

// WithPreference returns a copy with one preference set.
func (c Context) WithPreference(key, value string) Context {
	out := c.clone()
	out.Preferences[key] = value
	return out
}

// TrimmedTurns returns a copy whose history keeps only the most recent max
// turns. Non-positive max means no trimming.
func (c Context) TrimmedTurns(max int) Context {
	if max <= 0 || len(c.Turns) <= max {
		return c
	}
	out := c.clone()
	out.Turns = out.Turns[len(out.Turns)-max:]
	return out
}

// Cleared starts a new session that keeps the original start time and user
// preferences but drops history, attempts, and the old session id.
func (c Context) Cleared(now time.Time) Context {
	out := NewContext(now)
	out.SessionStart = c.SessionStart
	for k, v := range c.Preferences {
		out.Preferences[k] = v
	}
	return out
}

// Summary renders a short human-readable digest of the session.
func (c Context) Summary() string {
	if len(c.Turns) == 0 {
		return "No conversation history yet."
	}
	s := fmt.Sprintf("Conversation started: %s\n", c.SessionStart.Format(time.RFC3339))
	s += fmt.Sprintf("Total messages: %d\n", len(c.Turns))
	if len(c.Attempts) > 0 {
		s += fmt.Sprintf("Appointments discussed: %d\n", len(c.Attempts))
	}
	return s
}
