package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	store   Pinger
	version string
	logger  logrus.FieldLogger
}

// NewHealthHandler creates a new health handler. store may be nil when the
// service runs without an external database.
func NewHealthHandler(store Pinger, version string, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		version: version,
		logger:  logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  string    `json:"database,omitempty"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	status := http.StatusOK

	if h.store != nil {
		response.Database = "up"
		if err := h.store.Ping(); err != nil {
			h.logger.WithError(err).Warn("database ping failed")
			response.Status = "degraded"
			response.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	WriteJSON(w, status, response, h.logger)
}
