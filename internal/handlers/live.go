package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"detectserver/internal/logger"
	"detectserver/internal/models"
	"detectserver/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const liveReadTimeout = 60 * time.Second

// LiveResponse is the per-frame result sent back over the live socket.
// The annotated image is skipped to keep frame turnaround cheap.
type LiveResponse struct {
	ID      string                `json:"id"`
	Objects []string              `json:"objects"`
	Boxes   []models.DetectionBox `json:"boxes"`
}

// LiveWebsocketHandler accepts binary JPEG frames over a websocket and
// answers each with its detection result. Every processed frame is recorded
// in history as "live".
func LiveWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadDeadline(time.Now().Add(liveReadTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(liveReadTimeout))
			return nil
		})
		defer connection.Close()

		logger.Info("Live client connected from %s", r.RemoteAddr)

		for {
			messageType, frame, err := connection.ReadMessage()
			if err != nil {
				logger.Info("Live client disconnected: %v", err)
				break
			}
			connection.SetReadDeadline(time.Now().Add(liveReadTimeout))

			if messageType != websocket.BinaryMessage {
				continue
			}

			record, err := manager.Process(r.Context(), frame, models.RecordTypeLive, "")
			if err != nil {
				logger.Error("Error processing live frame: %v", err)
				if writeErr := connection.WriteJSON(errorResponse{Error: err.Error()}); writeErr != nil {
					break
				}
				continue
			}

			if err := connection.WriteJSON(LiveResponse{
				ID:      record.ID,
				Objects: record.Objects,
				Boxes:   record.Boxes,
			}); err != nil {
				logger.Error("Error sending live result: %v", err)
				break
			}
		}
	}
}
