package batch

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nicktill/tinychart/pkg/sdk/transport"
	"github.com/nicktill/tinychart/pkg/series"
)

// Config holds configuration for the batcher
type Config struct {
	MaxBatchSize int
	FlushEvery   time.Duration
	SendTimeout  time.Duration
}

// Batcher buffers samples and sends them in arrival order, either when a
// batch fills up or every FlushEvery.
type Batcher struct {
	config    Config
	transport transport.Transport

	samples []series.Sample
	mu      sync.Mutex

	// Held while draining and sending so batches reach the server in order
	sendMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	flushing atomic.Bool
	failed   atomic.Int64
}

// New creates a new batcher
func New(transport transport.Transport, config Config) *Batcher {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 1000
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = 5 * time.Second
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 5 * time.Second
	}
	return &Batcher{
		config:    config,
		transport: transport,
		samples:   make([]series.Sample, 0, config.MaxBatchSize),
		done:      make(chan struct{}),
	}
}

// Start starts the periodic flush loop
func (b *Batcher) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	go b.flushLoop()
	return nil
}

// Add queues a sample. A full batch is flushed in the background unless a
// flush is already running.
func (b *Batcher) Add(s series.Sample) {
	b.mu.Lock()
	b.samples = append(b.samples, s)
	shouldFlush := len(b.samples) >= b.config.MaxBatchSize
	b.mu.Unlock()

	if shouldFlush && b.flushing.CompareAndSwap(false, true) {
		go func() {
			b.flushAll()
			b.flushing.Store(false)
		}()
	}
}

// Pending returns the number of queued samples.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Failed returns the number of samples whose batch could not be sent.
func (b *Batcher) Failed() int64 {
	return b.failed.Load()
}

// Flush sends everything queued so far and returns the first send error.
func (b *Batcher) Flush() error {
	return b.flushAll()
}

// Stop stops the flush loop and sends what is left
func (b *Batcher) Stop() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	return b.flushAll()
}

func (b *Batcher) flushLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.config.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if b.flushing.CompareAndSwap(false, true) {
				if err := b.flushAll(); err != nil {
					log.Printf("Sample batch send failed: %v", err)
				}
				b.flushing.Store(false)
			}
		}
	}
}

// flushAll drains the queue in MaxBatchSize chunks.
func (b *Batcher) flushAll() error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	var firstErr error
	for {
		b.mu.Lock()
		n := len(b.samples)
		if n == 0 {
			b.mu.Unlock()
			return firstErr
		}
		if n > b.config.MaxBatchSize {
			n = b.config.MaxBatchSize
		}
		chunk := make([]series.Sample, n)
		copy(chunk, b.samples[:n])
		b.samples = append(b.samples[:0], b.samples[n:]...)
		b.mu.Unlock()

		if err := b.send(chunk); err != nil {
			b.failed.Add(int64(len(chunk)))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
}

func (b *Batcher) send(samples []series.Sample) error {
	// Stop's final flush runs after b.ctx is cancelled
	parent := context.Background()
	if b.ctx != nil && b.ctx.Err() == nil {
		parent = b.ctx
	}
	ctx, cancel := context.WithTimeout(parent, b.config.SendTimeout)
	defer cancel()

	return b.transport.Send(ctx, samples)
}
