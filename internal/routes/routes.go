package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"detectserver/internal/config"
	"detectserver/internal/handlers"
	"detectserver/internal/history"
	"detectserver/internal/logger"
	"detectserver/internal/middleware"
	"detectserver/internal/service"
	"detectserver/internal/storage"
)

// SetupRoutes registers the API endpoints and wraps the router with the CORS
// middleware.
func SetupRoutes(manager *service.Manager, store *storage.UploadStore, hist *history.Store, cfg *config.Config, logger *logger.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/detect", handlers.DetectHandler(manager, cfg, logger)).Methods(http.MethodPost)
	router.HandleFunc("/upload", handlers.UploadHandler(manager, store, cfg, logger)).Methods(http.MethodPost)
	router.HandleFunc("/history", handlers.HistoryHandler(hist, logger)).Methods(http.MethodGet)
	router.HandleFunc("/stats", handlers.StatsHandler(hist, logger)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handlers.HealthHandler(manager, logger)).Methods(http.MethodGet)
	router.HandleFunc("/live", handlers.LiveWebsocketHandler(manager, logger))

	return middleware.CORS(router)
}
