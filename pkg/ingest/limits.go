package ingest

import (
	"fmt"
	"math"
	"strings"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/series"
)

var (
	// ErrDatasetNameEmpty is returned when a dataset name is empty
	ErrDatasetNameEmpty = fmt.Errorf("dataset name cannot be empty")

	// ErrDatasetNameTooLong is returned when a dataset name is too long
	ErrDatasetNameTooLong = fmt.Errorf("dataset name too long (max %d chars)", config.MaxDatasetNameLength)

	// ErrDatasetNameInvalid is returned when a dataset name contains path or control characters
	ErrDatasetNameInvalid = fmt.Errorf("dataset name may only contain letters, digits, '-', '_' and '.'")

	// ErrTimestampEmpty is returned when a sample has no timestamp
	ErrTimestampEmpty = fmt.Errorf("sample timestamp cannot be empty")

	// ErrTimestampTooLong is returned when a sample timestamp is too long
	ErrTimestampTooLong = fmt.Errorf("sample timestamp too long (max %d chars)", config.MaxTimestampLength)

	// ErrValueNotFinite is returned for NaN or infinite values
	ErrValueNotFinite = fmt.Errorf("sample value must be finite")

	// ErrTooManySamples is returned when a write request contains too many samples
	ErrTooManySamples = fmt.Errorf("too many samples in request (max %d)", config.MaxSamplesPerRequest)
)

// ValidateDatasetName checks a dataset name taken from the URL path
func ValidateDatasetName(name string) error {
	if name == "" {
		return ErrDatasetNameEmpty
	}
	if len(name) > config.MaxDatasetNameLength {
		return fmt.Errorf("%w: %d chars", ErrDatasetNameTooLong, len(name))
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrDatasetNameInvalid, name)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.')
	}) >= 0 {
		return fmt.Errorf("%w: %q", ErrDatasetNameInvalid, name)
	}
	return nil
}

// ValidateSample checks a single sample before it is stored.
// Timestamps are not parsed here; the data source serves them back verbatim.
func ValidateSample(s series.Sample) error {
	if s.Timestamp == "" {
		return ErrTimestampEmpty
	}
	if len(s.Timestamp) > config.MaxTimestampLength {
		return fmt.Errorf("%w: %d chars", ErrTimestampTooLong, len(s.Timestamp))
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return ErrValueNotFinite
	}
	return nil
}
