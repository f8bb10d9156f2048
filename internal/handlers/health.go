package handlers

import (
	"net/http"

	"detectserver/internal/logger"
	"detectserver/internal/service"
)

// HealthHandler reports liveness and the detection worker count.
func HealthHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"workers": manager.Workers(),
		}, logger)
	}
}
