package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/server"
	"github.com/nicktill/tinychart/pkg/server/monitor"
)

func main() {
	log.Println("🚀 Starting TinyChart data source...")

	// TINYCHART_MAX_STORAGE_GB: Maximum storage in GB (default: 1 GB)
	// TINYCHART_MAX_MEMORY_MB: Maximum BadgerDB memory in MB (default: 48 MB)
	// TINYCHART_DATA_DIR: BadgerDB directory (default: ./data/tinychart)
	// PORT: listen port (default: 8080)
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("⚙️  Configuration: Storage limit = %d GB, Memory limit = %d MB", cfg.MaxStorageGB, cfg.MaxMemoryMB)
	log.Printf("📁 Data directory: %s", cfg.DataDir)

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer store.Close()

	storageMonitor := monitor.NewStorageMonitor(cfg.DataDir, cfg.MaxStorageBytes())
	log.Printf("💾 Storage limit enforcement enabled: %d GB max", cfg.MaxStorageGB)

	ingestHandler, exportHandler := server.InitializeHandlers(store, storageMonitor)
	gcMonitor := &monitor.GCMonitor{}

	var wg sync.WaitGroup

	// Start BadgerDB garbage collection (reclaims disk space after deletes)
	stopGC := make(chan struct{})
	wg.Add(1)
	go server.RunBadgerGC(store, config.BadgerGCInterval, gcMonitor, storageMonitor, stopGC, &wg)

	router := mux.NewRouter()
	server.SetupRoutes(router, ingestHandler, exportHandler, storageMonitor, gcMonitor)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Wrap(router, cfg.Port),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Data source listening on http://localhost:%s", cfg.Port)
		log.Println("📡 API endpoints:")
		log.Println("   GET    /data.json                      - Default dataset (widget source)")
		log.Println("   GET    /v1/datasets/{name}/data.json   - Named dataset")
		log.Println("   POST   /v1/datasets/{name}/samples     - Append samples")
		log.Println("   DELETE /v1/datasets/{name}             - Drop dataset")
		log.Println("   GET    /v1/datasets/{name}/export      - Backup (json|csv)")
		log.Println("   POST   /v1/datasets/{name}/import      - Restore")
		log.Println("   GET    /v1/stats                       - Storage statistics")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	log.Println("⏸️  Stopping background tasks...")
	close(stopGC)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(config.BackgroundStopGrace):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 TinyChart data source exited cleanly")
}
