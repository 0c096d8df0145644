package server

import (
	"log"
	"sync"
	"time"

	"github.com/nicktill/tinychart/pkg/server/monitor"
	"github.com/nicktill/tinychart/pkg/storage"
	"github.com/nicktill/tinychart/pkg/storage/badger"
)

// gcDiscardRatio rewrites a value log file once half of it is garbage.
const gcDiscardRatio = 0.5

// RunBadgerGC runs BadgerDB value log garbage collection every interval
// until stop is closed. Deleted datasets leave their samples in the value
// log, so without GC the data directory only grows.
func RunBadgerGC(
	store storage.Storage,
	interval time.Duration,
	gcMonitor *monitor.GCMonitor,
	storageMonitor *monitor.StorageMonitor,
	stop <-chan struct{},
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	badgerStore, ok := store.(*badger.Storage)
	if !ok {
		log.Println("Storage is not BadgerDB, skipping GC")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("BadgerDB GC scheduler started (runs every %v)", interval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			reclaimed, err := badgerStore.RunGC(gcDiscardRatio)
			if err != nil {
				gcMonitor.RecordFailure(err)
				log.Printf("GC failed: %v", err)
				if status := gcMonitor.Status(); !status.Healthy {
					log.Printf("ALERT: BadgerDB GC has been failing! Consecutive errors: %d", status.ConsecutiveErrors)
				}
				continue
			}

			gcMonitor.RecordSuccess(reclaimed)
			if reclaimed {
				if storageMonitor != nil {
					storageMonitor.Invalidate()
				}
				log.Printf("GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		case <-stop:
			log.Println("Stopping BadgerDB GC scheduler")
			return
		}
	}
}
