package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	ModelPath       string
	ConfigPath      string
	UploadDirectory string
	LogDirectory    string
	HistoryDBPath   string  // empty disables history persistence
	Workers         int     // detection workers, one network each
	QueueSize       int     // bounded detection task queue
	DetectTimeout   int     // per-request detection timeout in seconds
	ConfThreshold   float64 // minimum confidence for a detection to count
	MaxUploadSizeMB int64
}

func Load() *Config {
	// Optional .env file, real environment takes precedence.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:      getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		HistoryDBPath:   getEnv("HISTORY_DB", ""),
		Workers:         getEnvAsInt("WORKERS", 2),
		QueueSize:       getEnvAsInt("QUEUE_SIZE", 16),
		DetectTimeout:   getEnvAsInt("DETECT_TIMEOUT", 30),
		ConfThreshold:   getEnvAsFloat("CONF_THRESHOLD", 0.5),
		MaxUploadSizeMB: getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
