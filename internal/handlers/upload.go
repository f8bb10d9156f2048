package handlers

import (
	"net/http"
	"strings"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/models"
	"detectserver/internal/service"
	"detectserver/internal/storage"
)

// UploadHandler saves the uploaded original to disk, then runs detection on
// it. The declared content type must be image/*, checked before any decoding.
func UploadHandler(manager *service.Manager, store *storage.UploadStore, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, header, err := readMultipartFile(r, cfg.MaxUploadSizeMB<<20)
		if err != nil {
			logger.Error("Error reading upload request: %v", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing or unreadable file field"}, logger)
			return
		}

		logger.Info("Receiving upload request for file: %s", header.Filename)

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			logger.Warning("Rejected upload %s with content type %q", header.Filename, contentType)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file must be an image"}, logger)
			return
		}

		path, err := store.Save(header.Filename, data)
		if err != nil {
			logger.Error("Error saving upload: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, logger)
			return
		}

		record, err := manager.Process(r.Context(), data, models.RecordTypeUpload, path)
		if err != nil {
			logger.Error("Error during image upload and detection: %v", err)
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
