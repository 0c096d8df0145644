package server

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/export"
	"github.com/nicktill/tinychart/pkg/ingest"
	"github.com/nicktill/tinychart/pkg/server/monitor"
	"github.com/nicktill/tinychart/pkg/storage"
	"github.com/nicktill/tinychart/pkg/storage/badger"
)

// Config holds data source server configuration.
type Config struct {
	MaxStorageGB int64
	MaxMemoryMB  int64
	DataDir      string
	Port         string
}

// MaxStorageBytes is the storage limit enforced on writes.
func (c Config) MaxStorageBytes() int64 {
	return c.MaxStorageGB * 1024 * 1024 * 1024
}

// LoadConfig loads configuration from environment variables and makes sure
// the data directory exists.
func LoadConfig() (Config, error) {
	cfg := Config{
		MaxStorageGB: getEnvInt64("TINYCHART_MAX_STORAGE_GB", config.DefaultMaxStorageGB),
		MaxMemoryMB:  getEnvInt64("TINYCHART_MAX_MEMORY_MB", config.DefaultMaxMemoryMB),
		DataDir:      getEnvString("TINYCHART_DATA_DIR", config.DefaultDataDir),
		Port:         getEnvString("PORT", config.DefaultPort),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

// InitializeStorage opens BadgerDB storage in the configured data directory.
func InitializeStorage(cfg Config) (storage.Storage, error) {
	log.Println("Initializing BadgerDB storage with Snappy compression...")
	store, err := badger.New(badger.Config{
		Path:        cfg.DataDir,
		MaxMemoryMB: cfg.MaxMemoryMB,
	})
	if err != nil {
		return nil, err
	}
	log.Println("BadgerDB storage initialized successfully")
	return store, nil
}

// InitializeHandlers creates the dataset and backup handlers.
func InitializeHandlers(store storage.Storage, storageMonitor *monitor.StorageMonitor) (*ingest.Handler, *export.Handler) {
	ingestHandler := ingest.NewHandler(store)
	if storageMonitor != nil {
		ingestHandler.SetStorageChecker(storageMonitor)
	}
	log.Println("Dataset handler created with storage limits")

	exportHandler := export.NewHandler(store)
	log.Println("Export/Import handler created (JSON & CSV dataset backup)")

	return ingestHandler, exportHandler
}

// getEnvInt64 gets an int64 from environment variable or returns default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

// getEnvString gets a string from environment variable or returns default.
func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
