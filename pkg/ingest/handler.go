package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/httpx"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/storage"
)

// StorageChecker reports disk usage against the configured limit
type StorageChecker interface {
	GetUsage() (int64, error)
	GetLimit() int64
}

// Handler serves the datasets the chart widget fetches
type Handler struct {
	storage        storage.Storage
	storageChecker StorageChecker
	defaultDataset string
}

// NewHandler creates a new dataset handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		storage:        store,
		defaultDataset: config.DefaultDataset,
	}
}

// SetStorageChecker enables storage limit enforcement on writes
func (h *Handler) SetStorageChecker(checker StorageChecker) {
	h.storageChecker = checker
}

// WriteResponse represents the response to a sample write
type WriteResponse struct {
	Status  string `json:"status"`
	Dataset string `json:"dataset"`
	Count   int    `json:"count"`
}

// HandleDefaultData handles GET /data.json, the endpoint the widget fetches by default
func (h *Handler) HandleDefaultData(w http.ResponseWriter, r *http.Request) {
	h.serveDataset(w, r, h.defaultDataset)
}

// HandleData handles GET /v1/datasets/{name}/data.json
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := ValidateDatasetName(name); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	h.serveDataset(w, r, name)
}

// serveDataset writes a dataset as a bare JSON array in stored order.
// A dataset that was never written is served as an empty array.
func (h *Handler) serveDataset(w http.ResponseWriter, r *http.Request, name string) {
	ctx, cancel := context.WithTimeout(r.Context(), config.QueryTimeout)
	defer cancel()

	samples, err := h.storage.Query(ctx, storage.QueryRequest{Dataset: name})
	if errors.Is(err, storage.ErrDatasetNotFound) {
		samples = []series.Sample{}
	} else if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	httpx.RespondJSON(w, http.StatusOK, samples)
}

// HandleWrite handles POST /v1/datasets/{name}/samples.
// The body is a JSON array of {timestamp, value} objects appended in order.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := ValidateDatasetName(name); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	var samples []series.Sample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if len(samples) > config.MaxSamplesPerRequest {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("%w: got %d", ErrTooManySamples, len(samples)))
		return
	}

	for i, s := range samples {
		if err := ValidateSample(s); err != nil {
			httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid sample %d: %w", i, err))
			return
		}
	}

	if h.storageChecker != nil {
		used, err := h.storageChecker.GetUsage()
		if err != nil {
			log.Printf("Failed to check storage usage: %v", err)
		} else if used >= h.storageChecker.GetLimit() {
			httpx.RespondErrorString(w, http.StatusInsufficientStorage,
				fmt.Sprintf("storage limit reached (%d of %d bytes)", used, h.storageChecker.GetLimit()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	if err := h.storage.Write(ctx, name, samples); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("write failed: %w", err))
		return
	}

	httpx.RespondJSON(w, http.StatusOK, WriteResponse{
		Status:  "success",
		Dataset: name,
		Count:   len(samples),
	})
}

// HandleDelete handles DELETE /v1/datasets/{name}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := ValidateDatasetName(name); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	if err := h.storage.Delete(ctx, name); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("delete failed: %w", err))
		return
	}

	log.Printf("Deleted dataset %q", name)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats handles GET /v1/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StatsTimeout)
	defer cancel()

	stats, err := h.storage.Stats(ctx)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("stats failed: %w", err))
		return
	}

	httpx.RespondJSON(w, http.StatusOK, stats)
}
