package httpapi

import "net/http"

// GET /api/health
func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "UNAVAILABLE"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
