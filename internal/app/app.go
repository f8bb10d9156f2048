package app

import (
	"fmt"
	"net/http"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/database"
	"detectserver/internal/detector"
	"detectserver/internal/history"
	"detectserver/internal/logger"
	"detectserver/internal/routes"
	"detectserver/internal/service"
	"detectserver/internal/storage"
)

type App struct {
	config      *config.Config
	logger      *logger.Logger
	detectors   []*detector.Detector
	uploadStore *storage.UploadStore
	db          *database.Database
	history     *history.Store
	manager     *service.Manager
}

// NewApp wires the whole service together. Any error here is fatal, the
// process must not serve traffic without a loaded model.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg.LogDirectory)

	// One network per worker, gocv nets are not safe for concurrent use.
	detectors := make([]*detector.Detector, 0, cfg.Workers)
	workerDetectors := make([]service.Detector, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		d, err := detector.New(cfg.ModelPath, cfg.ConfigPath, cfg.ConfThreshold, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load detection model: %w", err)
		}
		detectors = append(detectors, d)
		workerDetectors = append(workerDetectors, d)
	}

	uploadStore, err := storage.NewUploadStore(cfg.UploadDirectory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	var db *database.Database
	if cfg.HistoryDBPath != "" {
		db, err = database.New(cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
	}

	hist := history.NewStore(db, log)
	manager := service.NewManager(workerDetectors, hist, cfg.QueueSize, time.Duration(cfg.DetectTimeout)*time.Second, log)

	return &App{
		config:      cfg,
		logger:      log,
		detectors:   detectors,
		uploadStore: uploadStore,
		db:          db,
		history:     hist,
		manager:     manager,
	}, nil
}

func (a *App) Run() error {
	router := routes.SetupRoutes(a.manager, a.uploadStore, a.history, a.config, a.logger)

	fmt.Printf("🚀 Object Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Uploads: %s\n", a.config.UploadDirectory)
	fmt.Printf("🤖 Model: %s\n", a.config.ModelPath)
	if a.config.HistoryDBPath != "" {
		fmt.Printf("🗄️  History DB: %s\n", a.config.HistoryDBPath)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return server.ListenAndServe()
}

// Close stops the workers and releases the networks and database.
func (a *App) Close() {
	a.manager.Stop()
	for _, d := range a.detectors {
		d.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing history database: %v", err)
		}
	}
}
