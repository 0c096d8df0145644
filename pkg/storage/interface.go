package storage

import (
	"context"
	"errors"

	"github.com/nicktill/tinychart/pkg/series"
)

// ErrDatasetNotFound is returned by Query when a dataset has no samples.
var ErrDatasetNotFound = errors.New("dataset not found")

// Storage defines the interface for sample storage backends.
// Implementations: memory (testing), badger (production)
type Storage interface {
	// Write appends samples to a dataset, preserving order
	Write(ctx context.Context, dataset string, samples []series.Sample) error

	// Query returns a dataset's samples in the order they were written
	Query(ctx context.Context, req QueryRequest) ([]series.Sample, error)

	// Delete removes a dataset
	Delete(ctx context.Context, dataset string) error

	// Close cleanly shuts down the storage
	Close() error

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)
}

// QueryRequest specifies which samples to retrieve
type QueryRequest struct {
	Dataset string

	// Limit number of results (0 = no limit)
	Limit int
}

// Stats provides storage health and usage info
type Stats struct {
	TotalSamples  uint64 `json:"total_samples"`
	TotalDatasets uint64 `json:"total_datasets"`
	SizeBytes     uint64 `json:"size_bytes"`
}
