package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/storage"
)

// Key prefixes
const (
	samplePrefix byte = 's'
	metaPrefix   byte = 'm'
)

// writeChunkSize bounds the samples committed per transaction to stay clear of ErrTxnTooBig.
const writeChunkSize = 1000

// Storage implements storage.Storage using BadgerDB (LSM tree)
type Storage struct {
	db *badger.DB

	// Serializes writers so sequence allocation never conflicts
	writeMu sync.Mutex
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = laptop-friendly defaults)
	MaxMemoryMB int64
}

// datasetMeta is stored once per dataset under the meta key.
type datasetMeta struct {
	Name string `json:"name"`
	Next uint64 `json:"next"`
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// 16 MB memtable unless the caller gives a budget
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogMaxEntries(5000).
		WithValueLogFileSize(64 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{db: db}, nil
}

// Write appends samples to a dataset.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Write(ctx context.Context, dataset string, samples []series.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		for start := 0; start < len(samples); start += writeChunkSize {
			end := start + writeChunkSize
			if end > len(samples) {
				end = len(samples)
			}

			if err := ctx.Err(); err != nil {
				done <- err
				return
			}

			if err := s.db.Update(func(txn *badger.Txn) error {
				return writeChunk(txn, dataset, samples[start:end])
			}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("write operation cancelled: %w", ctx.Err())
	}
}

// writeChunk appends samples after the dataset's current sequence number.
func writeChunk(txn *badger.Txn, dataset string, samples []series.Sample) error {
	meta, err := readMeta(txn, dataset)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &datasetMeta{Name: dataset}
	}

	hash := datasetHash(dataset)
	for _, sample := range samples {
		value, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("failed to encode sample: %w", err)
		}
		if err := txn.Set(sampleKey(hash, meta.Next), value); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
		meta.Next++
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode dataset meta: %w", err)
	}
	return txn.Set(metaKey(hash), encoded)
}

// Query retrieves a dataset in write order.
// Enforces context timeout/cancellation to prevent indefinite blocking.
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]series.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type queryResult struct {
		results []series.Sample
		err     error
	}
	done := make(chan queryResult, 1)

	go func() {
		var res queryResult
		res.err = s.db.View(func(txn *badger.Txn) error {
			meta, err := readMeta(txn, req.Dataset)
			if err != nil {
				return err
			}
			if meta == nil {
				return storage.ErrDatasetNotFound
			}

			results := make([]series.Sample, 0, meta.Next)
			prefix := samplePrefixFor(datasetHash(req.Dataset))

			opts := badger.DefaultIteratorOptions
			opts.PrefetchSize = 100
			it := txn.NewIterator(opts)
			defer it.Close()

			var iterCount int
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				iterCount++
				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				var sample series.Sample
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &sample)
				}); err != nil {
					return fmt.Errorf("failed to decode sample: %w", err)
				}
				results = append(results, sample)

				if req.Limit > 0 && len(results) >= req.Limit {
					break
				}
			}

			res.results = results
			return nil
		})
		done <- res
	}()

	select {
	case res := <-done:
		return res.results, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("query operation cancelled: %w", ctx.Err())
	}
}

// Delete removes a dataset and all of its samples
func (s *Storage) Delete(ctx context.Context, dataset string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	hash := datasetHash(dataset)
	prefix := samplePrefixFor(hash)

	// Collect keys first; deleting while iterating in one txn can exceed txn limits
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan dataset: %w", err)
	}
	keys = append(keys, metaKey(hash))

	wb := s.db.NewWriteBatch()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			wb.Cancel()
			return fmt.Errorf("failed to delete key: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush delete: %w", err)
	}
	return nil
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunGC runs one pass of BadgerDB's value log garbage collection.
// reclaimed is false when no value log file was worth rewriting.
func (s *Storage) RunGC(discardRatio float64) (reclaimed bool, err error) {
	err = s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &storage.Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var iterCount int
		for it.Rewind(); it.Valid(); it.Next() {
			iterCount++
			if iterCount%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			switch it.Item().Key()[0] {
			case samplePrefix:
				stats.TotalSamples++
			case metaPrefix:
				stats.TotalDatasets++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lsmSize, vlogSize := s.db.Size()
	stats.SizeBytes = uint64(lsmSize + vlogSize)
	return stats, nil
}

// readMeta loads the dataset meta, nil when the dataset does not exist.
func readMeta(txn *badger.Txn, dataset string) (*datasetMeta, error) {
	item, err := txn.Get(metaKey(datasetHash(dataset)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset meta: %w", err)
	}

	var meta datasetMeta
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode dataset meta: %w", err)
	}
	return &meta, nil
}

func datasetHash(dataset string) uint64 {
	return xxhash.Sum64String(dataset)
}

// metaKey format: ['m'][dataset_hash (8 bytes)]
func metaKey(hash uint64) []byte {
	key := make([]byte, 9)
	key[0] = metaPrefix
	binary.BigEndian.PutUint64(key[1:9], hash)
	return key
}

// samplePrefixFor format: ['s'][dataset_hash (8 bytes)]
func samplePrefixFor(hash uint64) []byte {
	key := make([]byte, 9)
	key[0] = samplePrefix
	binary.BigEndian.PutUint64(key[1:9], hash)
	return key
}

// sampleKey format: ['s'][dataset_hash (8 bytes)][sequence (8 bytes)]
// Big-endian sequence keeps iteration in write order.
func sampleKey(hash, seq uint64) []byte {
	key := make([]byte, 17)
	copy(key, samplePrefixFor(hash))
	binary.BigEndian.PutUint64(key[9:17], seq)
	return key
}
