package handlers

import (
	"net/http"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/models"
	"detectserver/internal/service"
)

// DetectHandler runs object detection on a posted frame without persisting
// the original image. Results are recorded in history as "live".
func DetectHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, header, err := readMultipartFile(r, cfg.MaxUploadSizeMB<<20)
		if err != nil {
			logger.Error("Error reading detect request: %v", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or unreadable file field"}, logger)
			return
		}

		logger.Info("Processing detection request for file: %s", header.Filename)

		record, err := manager.Process(r.Context(), data, models.RecordTypeLive, "")
		if err != nil {
			logger.Error("Error during object detection: %v", err)
			writeProcessError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, DetectionResponse{
			Objects:     record.Objects,
			Boxes:       record.Boxes,
			Base64Image: record.Base64Image,
		}, logger)
	}
}
