package sdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nicktill/tinychart/pkg/sdk/batch"
	"github.com/nicktill/tinychart/pkg/sdk/transport"
	"github.com/nicktill/tinychart/pkg/series"
)

// ClientConfig holds configuration for the TinyChart client
type ClientConfig struct {
	Endpoint   string        `json:"endpoint"`
	Dataset    string        `json:"dataset"`
	FlushEvery time.Duration `json:"flush_every"`
	BatchSize  int           `json:"batch_size"`
}

// Client pushes samples to a data source server
type Client struct {
	config  ClientConfig
	batcher *batch.Batcher

	mu      sync.Mutex
	started bool
}

// New creates a new TinyChart client
func New(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:8080"
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "default"
	}
	if cfg.FlushEvery == 0 {
		cfg.FlushEvery = 5 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}

	trans, err := transport.NewHTTP(cfg.Endpoint, cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Client{
		config: cfg,
		batcher: batch.New(trans, batch.Config{
			MaxBatchSize: cfg.BatchSize,
			FlushEvery:   cfg.FlushEvery,
		}),
	}, nil
}

// Start starts the client and begins flushing samples
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("client already started")
	}
	if err := c.batcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start batcher: %w", err)
	}
	c.started = true
	return nil
}

// Stop stops the client and flushes remaining samples
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false

	if err := c.batcher.Stop(); err != nil {
		return fmt.Errorf("failed to flush samples: %w", err)
	}
	return nil
}

// Record queues a sample. Samples recorded before Start are dropped.
func (c *Client) Record(s series.Sample) {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return
	}
	c.batcher.Add(s)
}

// RecordValue queues a value stamped with t in RFC 3339.
func (c *Client) RecordValue(t time.Time, v float64) {
	c.Record(series.Sample{Timestamp: t.Format(time.RFC3339), Value: v})
}

// Flush sends everything recorded so far.
func (c *Client) Flush() error {
	return c.batcher.Flush()
}

// Failed returns the number of samples that could not be delivered.
func (c *Client) Failed() int64 {
	return c.batcher.Failed()
}
