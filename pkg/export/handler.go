package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/httpx"
	"github.com/nicktill/tinychart/pkg/storage"
)

// Handler serves dataset backup and restore on the data source
type Handler struct {
	storage  storage.Storage
	importer *Importer
}

// NewHandler creates a new export/import handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		storage:  store,
		importer: NewImporter(store),
	}
}

// HandleExport handles GET /v1/datasets/{name}/export
// Query params:
//   - format: "json" or "csv" (default: json)
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid format. Must be 'json' or 'csv'")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.QueryTimeout)
	defer cancel()

	samples, err := h.storage.Query(ctx, storage.QueryRequest{Dataset: name})
	if errors.Is(err, storage.ErrDatasetNotFound) {
		httpx.RespondErrorString(w, http.StatusNotFound, fmt.Sprintf("dataset %q not found", name))
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("tinychart-%s-%s.%s", name, timestamp, format)

	if format == "json" {
		httpx.Attachment(w, "application/json", filename)
		err = WriteJSON(w, Metadata{Dataset: name}, samples)
	} else {
		httpx.Attachment(w, "text/csv", filename)
		err = WriteCSV(w, samples)
	}
	if err != nil {
		// Headers are already out; the client sees a truncated body
		log.Printf("❌ Export of %q failed: %v", name, err)
		return
	}

	log.Printf("✅ Exported %d samples from %q (%s)", len(samples), name, format)
}

// HandleImport handles POST /v1/datasets/{name}/import
// Accepts a JSON export document and appends its samples to the dataset
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if r.Header.Get("Content-Type") != "application/json" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	result, err := h.importer.ImportFromJSON(r.Context(), name, r.Body)
	if err != nil {
		log.Printf("❌ Import into %q failed: %v", name, err)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidDocument) {
			status = http.StatusBadRequest
		}
		httpx.RespondError(w, status, fmt.Errorf("import failed: %w", err))
		return
	}

	if len(result.Errors) > 0 {
		log.Printf("⚠️  Import completed with %d validation errors", len(result.Errors))
		for i, msg := range result.Errors {
			if i >= 10 {
				log.Printf("   ... and %d more errors", len(result.Errors)-10)
				break
			}
			log.Printf("   - %s", msg)
		}
	}

	log.Printf("✅ Imported %d samples into %q in %d batches", result.SamplesImported, name, result.BatchesWritten)
	httpx.RespondJSON(w, http.StatusOK, result)
}
