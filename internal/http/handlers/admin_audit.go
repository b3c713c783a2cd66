package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/medassist-ai/internal/compliance"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

// AdminAuditHandler exposes the audit trail to operators.
type AdminAuditHandler struct {
	audit  *compliance.AuditService
	logger *logging.Logger
}

func NewAdminAuditHandler(audit *compliance.AuditService, logger *logging.Logger) *AdminAuditHandler {
	if audit == nil {
		panic("handlers: audit service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAuditHandler{audit: audit, logger: logger}
}

// ListEvents handles GET /admin/audit?user_id=...&session_id=...&event_type=...
func (h *AdminAuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	filter := compliance.AuditFilter{
		UserID:    userID,
		SessionID: q.Get("session_id"),
		EventType: compliance.AuditEventType(q.Get("event_type")),
		Limit:     100,
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if v := q.Get("since"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartTime = ts
		}
	}
	if v := q.Get("until"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndTime = ts
		}
	}

	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "failed to query audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []compliance.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
