package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/export"
	"github.com/nicktill/tinychart/pkg/httpx"
	"github.com/nicktill/tinychart/pkg/ingest"
	"github.com/nicktill/tinychart/pkg/server/monitor"
)

var startTime = time.Now()

// StorageUsage represents current storage usage stats.
type StorageUsage struct {
	UsedBytes int64 `json:"used_bytes"`
	MaxBytes  int64 `json:"max_bytes"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string           `json:"status"`
	Version string           `json:"version"`
	Uptime  string           `json:"uptime"`
	GC      monitor.GCStatus `json:"gc"`
}

// handleHealth returns service health status.
func handleHealth(gcMonitor *monitor.GCMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := gcMonitor.Status()

		response := HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
			Uptime:  time.Since(startTime).String(),
			GC:      status,
		}

		code := http.StatusOK
		if !status.Healthy {
			response.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		httpx.RespondJSON(w, code, response)
	}
}

// handleStorageUsage returns current storage usage.
func handleStorageUsage(monitor *monitor.StorageMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usedBytes, err := monitor.GetUsage()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}

		httpx.RespondJSON(w, http.StatusOK, StorageUsage{
			UsedBytes: usedBytes,
			MaxBytes:  monitor.GetLimit(),
		})
	}
}

// SetupRoutes configures all HTTP routes for the data source.
func SetupRoutes(
	router *mux.Router,
	ingestHandler *ingest.Handler,
	exportHandler *export.Handler,
	storageMonitor *monitor.StorageMonitor,
	gcMonitor *monitor.GCMonitor,
) {
	// The widget's default endpoint
	router.HandleFunc("/data.json", ingestHandler.HandleDefaultData).Methods("GET")

	api := router.PathPrefix("/v1").Subrouter()

	// Datasets
	api.HandleFunc("/datasets/{name}/data.json", ingestHandler.HandleData).Methods("GET")
	api.HandleFunc("/datasets/{name}/samples", ingestHandler.HandleWrite).Methods("POST")
	api.HandleFunc("/datasets/{name}", ingestHandler.HandleDelete).Methods("DELETE")

	// Backup & restore
	api.HandleFunc("/datasets/{name}/export", exportHandler.HandleExport).Methods("GET")
	api.HandleFunc("/datasets/{name}/import", exportHandler.HandleImport).Methods("POST")

	// Stats and health
	api.HandleFunc("/stats", ingestHandler.HandleStats).Methods("GET")
	api.HandleFunc("/storage", handleStorageUsage(storageMonitor)).Methods("GET")
	api.HandleFunc("/health", handleHealth(gcMonitor)).Methods("GET")
}

// Wrap adds access logging and CORS restricted to localhost origins.
func Wrap(router http.Handler, port string) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{
			"http://localhost:" + port,
			"http://127.0.0.1:" + port,
			"http://localhost" + config.DefaultWidgetAddr,
			"http://127.0.0.1" + config.DefaultWidgetAddr,
		}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.LoggingHandler(os.Stdout, cors(router))
}
