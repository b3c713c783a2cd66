// Package handlers contains the HTTP handlers for the assistant API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/medassist-ai/internal/calendar"
	"github.com/wolfman30/medassist-ai/internal/compliance"
	"github.com/wolfman30/medassist-ai/internal/conversation"
	"github.com/wolfman30/medassist-ai/internal/sessions"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	svc         *conversation.Service
	sessions    *sessions.Store
	audit       *compliance.AuditService
	logger      *logging.Logger
	defaultUser string
	now         func() time.Time
}

func NewChatHandler(svc *conversation.Service, sessionStore *sessions.Store, audit *compliance.AuditService, logger *logging.Logger, defaultUser string) *ChatHandler {
	if svc == nil {
		panic("handlers: conversation service required")
	}
	if sessionStore == nil {
		panic("handlers: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultUser == "" {
		defaultUser = "guest"
	}
	return &ChatHandler{
		svc:         svc,
		sessions:    sessionStore,
		audit:       audit,
		logger:      logger,
		defaultUser: defaultUser,
		now:         time.Now,
	}
}

type messageRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

type bookingView struct {
	Outcome   string `json:"outcome"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Persisted bool   `json:"persisted"`
}

type messageResponse struct {
	SessionID string       `json:"session_id"`
	Reply     string       `json:"reply"`
	Booking   *bookingView `json:"booking,omitempty"`
	ModelDown bool         `json:"model_down,omitempty"`
}

// Message handles POST /chat/message: one conversational turn.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = h.defaultUser
	}

	ctx := r.Context()
	convCtx := h.loadOrStartSession(r, req.SessionID)

	resp, err := h.svc.ProcessTurn(ctx, conversation.TurnRequest{
		UserID:  userID,
		Input:   req.Message,
		Context: convCtx,
	})
	if err != nil {
		h.logger.Error("turn processing failed", "session_id", convCtx.SessionID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	// Session writes are best effort; the reply already happened.
	if err := h.sessions.Save(ctx, resp.Context); err != nil {
		h.logger.Warn("failed to persist session", "session_id", resp.Context.SessionID, "error", err)
	}

	h.auditTurn(r, userID, resp, req.Message)

	out := messageResponse{
		SessionID: resp.Context.SessionID,
		Reply:     resp.Reply,
		ModelDown: resp.ModelDown,
	}
	if resp.Booking != nil {
		out.Booking = &bookingView{
			Outcome:   resp.Booking.Outcome,
			Date:      resp.Booking.Date,
			Time:      resp.Booking.Time,
			Persisted: resp.Booking.Persisted,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type historyResponse struct {
	SessionID string                        `json:"session_id"`
	Summary   string                        `json:"summary"`
	Turns     []conversation.Turn           `json:"turns"`
	Attempts  []conversation.BookingAttempt `json:"attempts"`
}

// History handles GET /chat/history?session_id=...
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	convCtx, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: convCtx.SessionID,
		Summary:   convCtx.Summary(),
		Turns:     convCtx.Turns,
		Attempts:  convCtx.Attempts,
	})
}

type clearRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// Clear handles POST /chat/clear: wipes history but keeps session start and
// preferences under a fresh session id.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	convCtx, err := h.sessions.Load(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load session", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	cleared := convCtx.Cleared(h.now())
	if err := h.sessions.Save(ctx, cleared); err != nil {
		h.logger.Error("failed to persist cleared session", "session_id", cleared.SessionID, "error", err)
		http.Error(w, "failed to clear session", http.StatusInternalServerError)
		return
	}
	if err := h.sessions.Delete(ctx, req.SessionID); err != nil {
		h.logger.Warn("failed to delete old session", "session_id", req.SessionID, "error", err)
	}

	userID := req.UserID
	if userID == "" {
		userID = h.defaultUser
	}
	if err := h.audit.LogSessionCleared(ctx, userID, req.SessionID); err != nil {
		h.logger.Warn("failed to audit session clear", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": cleared.SessionID})
}

type appointmentsResponse struct {
	UserID       string                 `json:"user_id"`
	Appointments []calendar.Appointment `json:"appointments"`
}

// Appointments handles GET /appointments?user_id=...
func (h *ChatHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = h.defaultUser
	}

	appts := h.svc.Appointments(r.Context(), userID)
	if appts == nil {
		appts = []calendar.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointmentsResponse{UserID: userID, Appointments: appts})
}

// HealthCheck handles GET /health.
func (h *ChatHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "medassist-api"})
}

func (h *ChatHandler) loadOrStartSession(r *http.Request, sessionID string) conversation.Context {
	if sessionID == "" {
		return conversation.NewContext(h.now())
	}
	convCtx, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			h.logger.Warn("session load failed; starting fresh", "session_id", sessionID, "error", err)
		}
		return conversation.NewContext(h.now())
	}
	return convCtx
}

func (h *ChatHandler) auditTurn(r *http.Request, userID string, resp *conversation.TurnResponse, input string) {
	ctx := r.Context()
	if resp.ModelDown {
		if err := h.audit.LogModelUnavailable(ctx, userID, resp.Context.SessionID); err != nil {
			h.logger.Warn("failed to audit model outage", "error", err)
		}
		return
	}
	if err := h.audit.LogTurnCompleted(ctx, userID, resp.Context.SessionID, len(input), len(resp.Reply)); err != nil {
		h.logger.Warn("failed to audit turn", "error", err)
	}
	if resp.Booking != nil {
		if err := h.audit.LogBookingAttempted(ctx, userID, resp.Context.SessionID, resp.Booking.Date, resp.Booking.Time, resp.Booking.Outcome); err != nil {
			h.logger.Warn("failed to audit booking attempt", "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
