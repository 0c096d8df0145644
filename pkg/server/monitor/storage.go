package monitor

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// defaultUsageCacheTTL bounds how often the data directory is walked.
const defaultUsageCacheTTL = 10 * time.Second

// StorageMonitor reports disk usage of the data source's data directory
// against its configured limit. Usage is cached between directory walks.
type StorageMonitor struct {
	dataDir  string
	maxBytes int64
	cacheTTL time.Duration

	mu          sync.Mutex
	cachedUsage int64
	lastCheck   time.Time
}

// NewStorageMonitor creates a new storage monitor.
func NewStorageMonitor(dataDir string, maxBytes int64) *StorageMonitor {
	return &StorageMonitor{
		dataDir:  dataDir,
		maxBytes: maxBytes,
		cacheTTL: defaultUsageCacheTTL,
	}
}

// GetUsage returns the bytes used by the data directory.
func (sm *StorageMonitor) GetUsage() (int64, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.lastCheck.IsZero() && time.Since(sm.lastCheck) < sm.cacheTTL {
		return sm.cachedUsage, nil
	}

	usage, err := dirUsage(sm.dataDir)
	if err != nil {
		return 0, err
	}

	sm.cachedUsage = usage
	sm.lastCheck = time.Now()
	return usage, nil
}

// GetLimit returns the configured storage limit in bytes.
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.maxBytes
}

// Invalidate forces the next GetUsage to walk the directory, e.g. after a
// dataset delete or a value log GC.
func (sm *StorageMonitor) Invalidate() {
	sm.mu.Lock()
	sm.lastCheck = time.Time{}
	sm.mu.Unlock()
}

// dirUsage sums the disk usage of every regular file under root.
func dirUsage(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		size, err := diskUsage(path, info)
		if err != nil {
			size = info.Size()
		}
		total += size
		return nil
	})
	return total, err
}
