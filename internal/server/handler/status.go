package handler

import (
	"net/http"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// StatusHandler serves the running dashboard configuration.
type StatusHandler struct {
	status domain.DashboardStatus
}

// NewStatusHandler creates a StatusHandler reporting status.
func NewStatusHandler(status domain.DashboardStatus) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the mode, sources, limits and refresh interval.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status)
}
