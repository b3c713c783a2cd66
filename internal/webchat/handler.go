// Package webchat serves the browser chat widget over WebSocket.
package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/medassist-ai/internal/conversation"
	"github.com/wolfman30/medassist-ai/internal/sessions"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// Handler manages web chat connections. Each connection drives one session
// synchronously: receive a message, run the turn, send the reply.
type Handler struct {
	svc         *conversation.Service
	sessions    *sessions.Store
	logger      *logging.Logger
	defaultUser string
	now         func() time.Time
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history replays.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(svc *conversation.Service, sessionStore *sessions.Store, logger *logging.Logger, defaultUser string) *Handler {
	if svc == nil {
		panic("webchat: conversation service required")
	}
	if sessionStore == nil {
		panic("webchat: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultUser == "" {
		defaultUser = "guest"
	}
	return &Handler{
		svc:         svc,
		sessions:    sessionStore,
		logger:      logger,
		defaultUser: defaultUser,
		now:         time.Now,
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = h.defaultUser
	}

	convCtx := h.resolveSession(r.Context(), r.URL.Query().Get("session"))

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: convCtx.SessionID,
	})
	if len(convCtx.Turns) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyOf(convCtx)})
	}

	h.logger.Info("webchat: connection opened", "user_id", userID, "session_id", convCtx.SessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", convCtx.SessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

		resp, err := h.svc.ProcessTurn(r.Context(), conversation.TurnRequest{
			UserID:  userID,
			Input:   msg.Text,
			Context: convCtx,
		})
		if err != nil {
			h.logger.Error("webchat: turn failed", "session_id", convCtx.SessionID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type: "error",
				Text: "Sorry, something went wrong. Please try again.",
			})
			continue
		}

		convCtx = resp.Context
		if err := h.sessions.Save(r.Context(), convCtx); err != nil {
			h.logger.Warn("webchat: failed to persist session", "session_id", convCtx.SessionID, "error", err)
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      conversation.ChatRoleAssistant,
			Text:      resp.Reply,
			SessionID: convCtx.SessionID,
			Timestamp: h.now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *Handler) resolveSession(ctx context.Context, sessionID string) conversation.Context {
	if sessionID == "" {
		return conversation.NewContext(h.now())
	}
	convCtx, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			h.logger.Warn("webchat: session load failed; starting fresh", "session_id", sessionID, "error", err)
		}
		return conversation.NewContext(h.now())
	}
	return convCtx
}

func historyOf(c conversation.Context) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(c.Turns))
	for _, turn := range c.Turns {
		history = append(history, HistoryMessage{
			Role:      turn.Role,
			Text:      turn.Content,
			Timestamp: turn.At.Format(time.RFC3339),
		})
	}
	return history
}
