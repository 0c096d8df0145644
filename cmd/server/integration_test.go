package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/aggregate"
	"github.com/nicktill/tinychart/pkg/server"
	"github.com/nicktill/tinychart/pkg/server/monitor"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/source"
	"github.com/nicktill/tinychart/pkg/storage"
	"github.com/nicktill/tinychart/pkg/storage/badger"
	"github.com/nicktill/tinychart/pkg/storage/memory"
)

// setupRouter wires the data source routes over the given storage
func setupRouter(t *testing.T, store storage.Storage) *mux.Router {
	t.Helper()
	storageMonitor := monitor.NewStorageMonitor(t.TempDir(), 1<<30)
	ingestHandler, exportHandler := server.InitializeHandlers(store, storageMonitor)

	router := mux.NewRouter()
	server.SetupRoutes(router, ingestHandler, exportHandler, storageMonitor, &monitor.GCMonitor{})
	return router
}

// TestE2E_WriteAndFetch writes a month of daily samples and fetches them the
// way the widget does, then aggregates the result.
func TestE2E_WriteAndFetch(t *testing.T) {
	store := memory.New()
	defer store.Close()

	ts := httptest.NewServer(setupRouter(t, store))
	defer ts.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]series.Sample, 14)
	for i := range samples {
		samples[i] = series.Sample{Timestamp: start.AddDate(0, 0, i).Format("2006-01-02"), Value: float64(i + 1)}
	}

	body, _ := json.Marshal(samples)
	resp, err := http.Post(ts.URL+"/v1/datasets/default/samples", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	src := source.NewHTTP(ts.URL+"/data.json", 5*time.Second)
	fetched, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(fetched) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(fetched))
	}

	weekly, err := aggregate.Apply(fetched, series.Weekly)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(weekly) != 2 {
		t.Fatalf("Expected 2 weekly buckets, got %d", len(weekly))
	}
	if weekly[0].Value != 4 || weekly[1].Value != 11 {
		t.Errorf("Unexpected weekly means: %v, %v", weekly[0].Value, weekly[1].Value)
	}
}

// TestE2E_Stats tests stats endpoint
func TestE2E_Stats(t *testing.T) {
	store := memory.New()
	defer store.Close()

	ctx := context.Background()
	store.Write(ctx, "a", []series.Sample{{Timestamp: "2024-01-01", Value: 1}})
	store.Write(ctx, "b", []series.Sample{{Timestamp: "2024-01-01", Value: 2}})

	router := setupRouter(t, store)

	req := httptest.NewRequest("GET", "/v1/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Stats failed with status %d: %s", w.Code, w.Body.String())
	}

	var stats storage.Stats
	json.NewDecoder(w.Body).Decode(&stats)
	if stats.TotalSamples != 2 || stats.TotalDatasets != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// TestE2E_BadgerDeleteAndRewrite tests the dataset lifecycle on BadgerDB
func TestE2E_BadgerDeleteAndRewrite(t *testing.T) {
	store, err := badger.New(badger.Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	router := setupRouter(t, store)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := do("POST", "/v1/datasets/sales/samples", `[{"timestamp":"2024-01-31","value":5}]`); w.Code != http.StatusOK {
		t.Fatalf("Write failed: %d %s", w.Code, w.Body.String())
	}
	if w := do("DELETE", "/v1/datasets/sales", ""); w.Code != http.StatusNoContent {
		t.Fatalf("Delete failed: %d", w.Code)
	}
	if w := do("POST", "/v1/datasets/sales/samples", `[{"timestamp":"2024-02-01","value":15}]`); w.Code != http.StatusOK {
		t.Fatalf("Rewrite failed: %d", w.Code)
	}

	w := do("GET", "/v1/datasets/sales/data.json", "")
	var got []series.Sample
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != "2024-02-01" {
		t.Errorf("Expected only the rewritten sample, got %+v", got)
	}
}

// TestE2E_InvalidRequests tests error handling
func TestE2E_InvalidRequests(t *testing.T) {
	store := memory.New()
	defer store.Close()

	router := setupRouter(t, store)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "wrong method for samples",
			method:     "GET",
			path:       "/v1/datasets/default/samples",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid JSON",
			method:     "POST",
			path:       "/v1/datasets/default/samples",
			body:       "{invalid json}",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown route",
			method:     "GET",
			path:       "/v1/query",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
