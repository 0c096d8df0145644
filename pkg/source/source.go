// Package source retrieves the raw sample dataset the widget charts.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nicktill/tinychart/pkg/series"
)

// Source defines the interface for retrieving the dataset
type Source interface {
	Fetch(ctx context.Context) ([]series.Sample, error)
}

// FetchError reports a failed dataset retrieval.
type FetchError struct {
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Location, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPSource fetches the dataset with a single GET
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTP creates a new HTTP source
func NewHTTP(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch issues the GET and decodes the JSON array body
func (s *HTTPSource) Fetch(ctx context.Context) ([]series.Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Location: s.url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Location: s.url, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Location: s.url, Err: fmt.Errorf("request failed with status %d", resp.StatusCode)}
	}

	samples, err := decode(resp.Body)
	if err != nil {
		return nil, &FetchError{Location: s.url, Err: err}
	}
	return samples, nil
}

// FileSource reads the dataset from a local JSON file
type FileSource struct {
	path string
}

// NewFile creates a new file source
func NewFile(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the file
func (s *FileSource) Fetch(ctx context.Context) ([]series.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Location: s.path, Err: err}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &FetchError{Location: s.path, Err: err}
	}
	defer f.Close()

	samples, err := decode(f)
	if err != nil {
		return nil, &FetchError{Location: s.path, Err: err}
	}
	return samples, nil
}

// New picks an HTTP or file source from a location string.
func New(location string, timeout time.Duration) Source {
	if isURL(location) {
		return NewHTTP(location, timeout)
	}
	return NewFile(location)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// decode reads a JSON array of samples
func decode(r io.Reader) ([]series.Sample, error) {
	var samples []series.Sample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if samples == nil {
		samples = []series.Sample{}
	}
	return samples, nil
}
