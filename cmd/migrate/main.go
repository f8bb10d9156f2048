package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"detectserver/internal/config"
	"detectserver/internal/database"
	"detectserver/internal/detector"
	"detectserver/internal/logger"
	"detectserver/internal/models"
	"detectserver/internal/service"
)

// Rebuilds the history database by re-running detection over previously
// stored uploads. Useful after enabling HISTORY_DB on an instance that
// already accumulated uploads, or after losing the database file.
func main() {
	uploadsDir := flag.String("uploads", "uploads", "Directory containing stored uploads")
	dbPath := flag.String("db", filepath.Join("data", "history.db"), "History database path")
	reset := flag.Bool("reset", false, "Delete all existing records before rebuilding")
	flag.Parse()

	cfg := config.Load()
	appLogger := logger.NewLogger(cfg.LogDirectory)

	fmt.Printf("Rebuilding history database %s from %s\n", *dbPath, *uploadsDir)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *reset {
		if err := db.ClearAll(); err != nil {
			log.Fatalf("Failed to clear existing records: %v", err)
		}
		fmt.Println("Cleared existing records")
	}

	det, err := detector.New(cfg.ModelPath, cfg.ConfigPath, cfg.ConfThreshold, appLogger)
	if err != nil {
		log.Fatalf("Failed to load detection model: %v", err)
	}
	defer det.Close()

	files, err := os.ReadDir(*uploadsDir)
	if err != nil {
		log.Fatalf("Failed to read uploads directory: %v", err)
	}

	inserted := 0
	skipped := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		path := filepath.Join(*uploadsDir, file.Name())

		// Reruns must not duplicate history: files already recorded under
		// the same stored path are left alone.
		exists, err := db.HasRecordForImage(path)
		if err != nil {
			log.Fatalf("Failed to check existing record for %s: %v", file.Name(), err)
		}
		if exists {
			skipped++
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		detections, err := det.Detect(data)
		if err != nil {
			if errors.Is(err, detector.ErrInvalidImage) {
				log.Printf("⚠️  Skipping %s: not a decodable image", file.Name())
			} else {
				log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			}
			skipped++
			continue
		}

		record := service.AssembleRecord(models.RecordTypeUpload, detections, nil, path)
		if info, err := file.Info(); err == nil {
			record.Timestamp = info.ModTime()
		}

		if err := db.InsertRecord(&record); err != nil {
			log.Printf("⚠️  Failed to insert record for %s: %v", file.Name(), err)
			skipped++
			continue
		}
		inserted++
	}

	total, err := db.CountRecords()
	if err != nil {
		log.Fatalf("Failed to count records: %v", err)
	}
	fmt.Printf("Done: %d records inserted, %d files skipped, %d records total\n", inserted, skipped, total)
}
