package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/middleware"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/telemetry"
)

// TelemetryHandler serves analytics ingestion and audit history.
type TelemetryHandler struct {
	tracker *telemetry.Tracker
	audit   *telemetry.AuditLogger
	logger  logrus.FieldLogger
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(tracker *telemetry.Tracker, audit *telemetry.AuditLogger, logger logrus.FieldLogger) *TelemetryHandler {
	return &TelemetryHandler{tracker: tracker, audit: audit, logger: logger}
}

type trackRequest struct {
	Type      models.EventType       `json:"type"`
	SessionID string                 `json:"session_id"`
	Payload   map[string]interface{} `json:"payload"`
}

// Track handles POST /api/analytics/events
func (h *TelemetryHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}

	err := h.tracker.Track(r.Context(), telemetry.Event{
		Type:      req.Type,
		UserID:    middleware.PrincipalFrom(r.Context()).UserID,
		SessionID: req.SessionID,
		Payload:   req.Payload,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// History handles GET /api/audit/{entity}/{id}
func (h *TelemetryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteAppError(w, r, apperror.New(apperror.KindInvalidRequest, "limit", "limit must be a positive integer"), h.logger)
			return
		}
		limit = n
	}

	entries, err := h.audit.History(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id"), limit)
	if err != nil {
		WriteAppError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, entries, h.logger)
}
