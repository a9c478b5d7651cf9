package handlers

import (
	"net/http"

	"github.com/dndsim/combat-engine/backend/pkg/response"
)

// Health handles GET /health: liveness only.
//
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness handles GET /health/ready: checks the database too, since a
// service that cannot load snapshots cannot apply commands.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.Response
// @Router /health/ready [get]
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			response.Error(w, r, err)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
