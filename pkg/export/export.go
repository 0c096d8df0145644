package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
)

// ExportError wraps any failure while producing an export.
type ExportError struct {
	Op  string // capture, encode, create, write
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Exporter turns a chart handle into a PNG download.
type Exporter struct {
	// Filename used by SaveFile and download headers
	Filename string
}

// NewExporter creates an exporter that names its output chart.png
func NewExporter() *Exporter {
	return &Exporter{Filename: config.ExportFilename}
}

// Export captures the chart behind h and writes it to w as PNG.
// The handle is always released, whether or not the export succeeds.
func (e *Exporter) Export(ctx context.Context, h *Handle, w io.Writer) error {
	defer h.Release()

	if err := ctx.Err(); err != nil {
		return &ExportError{Op: "capture", Err: err}
	}

	img, err := h.Capture()
	if err != nil {
		return &ExportError{Op: "capture", Err: err}
	}

	if err := png.Encode(w, img); err != nil {
		return &ExportError{Op: "encode", Err: err}
	}
	return nil
}

// SaveFile exports the chart to dir/<Filename> and returns the written path.
// A partially written file is removed on failure.
func (e *Exporter) SaveFile(ctx context.Context, h *Handle, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.Release()
		return "", &ExportError{Op: "create", Err: err}
	}

	path := filepath.Join(dir, e.filename())
	f, err := os.Create(path)
	if err != nil {
		h.Release()
		return "", &ExportError{Op: "create", Err: err}
	}

	if err := e.Export(ctx, h, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", &ExportError{Op: "write", Err: err}
	}
	return path, nil
}

// ExportChart is a shortcut for exporting a chart through a one-shot handle.
func (e *Exporter) ExportChart(ctx context.Context, c *render.Chart, w io.Writer) error {
	return e.Export(ctx, NewHandle(c), w)
}

func (e *Exporter) filename() string {
	if e.Filename == "" {
		return config.ExportFilename
	}
	return e.Filename
}

// Metadata describes an exported series.
type Metadata struct {
	ExportedAt  time.Time `json:"exported_at"`
	Dataset     string    `json:"dataset,omitempty"`
	Timeframe   string    `json:"timeframe,omitempty"`
	SampleCount int       `json:"sample_count"`
	Format      string    `json:"format"`
	Version     string    `json:"version"`
}

// Document is the JSON export format: metadata plus the samples in order.
type Document struct {
	Metadata Metadata        `json:"metadata"`
	Samples  []series.Sample `json:"samples"`
}

// WriteJSON writes samples as a pretty-printed Document.
func WriteJSON(w io.Writer, meta Metadata, samples []series.Sample) error {
	if meta.ExportedAt.IsZero() {
		meta.ExportedAt = time.Now()
	}
	meta.SampleCount = len(samples)
	meta.Format = "json"
	meta.Version = "1.0"

	if samples == nil {
		samples = []series.Sample{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Document{Metadata: meta, Samples: samples}); err != nil {
		return &ExportError{Op: "write", Err: fmt.Errorf("failed to encode JSON: %w", err)}
	}
	return nil
}

// WriteCSV writes samples as timestamp,value rows under a header.
func WriteCSV(w io.Writer, samples []series.Sample) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"timestamp", "value"}); err != nil {
		return &ExportError{Op: "write", Err: fmt.Errorf("failed to write CSV header: %w", err)}
	}
	for _, s := range samples {
		if err := writer.Write([]string{s.Timestamp, render.FormatValue(s.Value)}); err != nil {
			return &ExportError{Op: "write", Err: fmt.Errorf("failed to write CSV row: %w", err)}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ExportError{Op: "write", Err: err}
	}
	return nil
}
