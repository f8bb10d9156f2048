package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"detectserver/internal/detector"
	"detectserver/internal/logger"
	"detectserver/internal/models"
	"detectserver/internal/service"
)

// DetectionResponse is the payload returned by the detect and upload endpoints.
type DetectionResponse struct {
	Objects     []string              `json:"objects"`
	Boxes       []models.DetectionBox `json:"boxes"`
	Base64Image string                `json:"base64_image,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeProcessError maps a detection pipeline error to its HTTP status.
func writeProcessError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, detector.ErrInvalidImage):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrQueueFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, errorResponse{Error: err.Error()}, logger)
}

// readMultipartFile reads the "file" form field, enforcing the size limit.
func readMultipartFile(r *http.Request, maxBytes int64) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}

	return data, header, nil
}
