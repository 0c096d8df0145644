package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/storage"
)

// ErrInvalidDocument is returned when an import body is not an export document
var ErrInvalidDocument = errors.New("invalid export document")

const (
	// MaxImportBatchSize is the maximum number of samples to write at once
	MaxImportBatchSize = 5000
)

// Importer restores exported documents into a data source dataset
type Importer struct {
	storage storage.Storage
}

// NewImporter creates a new importer
func NewImporter(store storage.Storage) *Importer {
	return &Importer{storage: store}
}

// ImportResult contains stats about the import operation
type ImportResult struct {
	Dataset         string    `json:"dataset"`
	SamplesImported int       `json:"samples_imported"`
	BatchesWritten  int       `json:"batches_written"`
	ImportedAt      time.Time `json:"imported_at"`
	Errors          []string  `json:"errors,omitempty"`
}

// ImportFromJSON appends the samples of a Document to dataset.
// Invalid samples are skipped and reported in the result.
func (im *Importer) ImportFromJSON(ctx context.Context, dataset string, r io.Reader) (*ImportResult, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	result := &ImportResult{
		Dataset:    dataset,
		ImportedAt: time.Now(),
	}

	valid := make([]series.Sample, 0, len(doc.Samples))
	for i, s := range doc.Samples {
		if err := validateImportedSample(s); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("sample %d: %v", i, err))
			continue
		}
		valid = append(valid, s)
	}

	for i := 0; i < len(valid); i += MaxImportBatchSize {
		end := i + MaxImportBatchSize
		if end > len(valid) {
			end = len(valid)
		}

		if err := im.storage.Write(ctx, dataset, valid[i:end]); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", result.BatchesWritten, err)
		}
		result.BatchesWritten++
	}

	result.SamplesImported = len(valid)
	return result, nil
}

func validateImportedSample(s series.Sample) error {
	if s.Timestamp == "" {
		return fmt.Errorf("timestamp cannot be empty")
	}
	if len(s.Timestamp) > config.MaxTimestampLength {
		return fmt.Errorf("timestamp too long (%d chars)", len(s.Timestamp))
	}
	return nil
}
