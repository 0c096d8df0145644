package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nicktill/tinychart/pkg/series"
)

// Transport defines the interface for sending samples
type Transport interface {
	Send(ctx context.Context, samples []series.Sample) error
}

// StatusError is returned when the data source rejects a write.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// HTTPTransport appends samples to one dataset of a data source server
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates a transport writing to dataset on the server at baseURL.
func NewHTTP(baseURL, dataset string) (*HTTPTransport, error) {
	if dataset == "" {
		return nil, fmt.Errorf("dataset name is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &HTTPTransport{
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/datasets/" + url.PathEscape(dataset) + "/samples",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Endpoint is the URL samples are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send posts samples as a JSON array
func (t *HTTPTransport) Send(ctx context.Context, samples []series.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	jsonData, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		json.Unmarshal(data, &body)
		return &StatusError{StatusCode: resp.StatusCode, Message: body.Message}
	}

	return nil
}
