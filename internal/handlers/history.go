package handlers

import (
	"net/http"

	"detectserver/internal/history"
	"detectserver/internal/logger"
	"detectserver/internal/models"
)

// HistoryResponse wraps the full detection history in insertion order.
type HistoryResponse struct {
	History []models.DetectionRecord `json:"history"`
}

// HistoryHandler returns every recorded detection result.
func HistoryHandler(store *history.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HistoryResponse{History: store.Snapshot()}, logger)
	}
}
