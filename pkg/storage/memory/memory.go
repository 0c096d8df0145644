package memory

import (
	"context"
	"sync"

	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/storage"
)

// Storage stores samples in memory. Data is lost on restart.
// Useful for testing and development.
type Storage struct {
	datasets map[string][]series.Sample
	mu       sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		datasets: make(map[string][]series.Sample),
	}
}

// Write appends samples to a dataset
func (s *Storage) Write(ctx context.Context, dataset string, samples []series.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets[dataset] = append(s.datasets[dataset], samples...)
	return nil
}

// Query retrieves a dataset in write order
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]series.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.datasets[req.Dataset]
	if !ok {
		return nil, storage.ErrDatasetNotFound
	}

	n := len(stored)
	if req.Limit > 0 && req.Limit < n {
		n = req.Limit
	}

	// Return a copy to avoid race conditions
	results := make([]series.Sample, n)
	copy(results, stored[:n])
	return results, nil
}

// Delete removes a dataset
func (s *Storage) Delete(ctx context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.datasets, dataset)
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalDatasets: uint64(len(s.datasets)),
	}

	for _, samples := range s.datasets {
		stats.TotalSamples += uint64(len(samples))
		for _, sample := range samples {
			// Rough size estimate: value + timestamp bytes
			stats.SizeBytes += 8 + uint64(len(sample.Timestamp))
		}
	}

	return stats, nil
}
