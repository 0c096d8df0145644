package monitor

import (
	"sync"
	"time"
)

// maxConsecutiveGCErrors is how many failed value log GC runs in a row are
// tolerated before the data source reports itself degraded.
const maxConsecutiveGCErrors = 3

// GCMonitor tracks the health of the badger value log GC loop.
type GCMonitor struct {
	mu                sync.RWMutex
	lastSuccess       time.Time
	lastAttempt       time.Time
	runs              int
	reclaimed         int
	consecutiveErrors int
	lastError         string
}

// RecordSuccess records a GC run. reclaimed is false when badger had
// nothing to rewrite.
func (gm *GCMonitor) RecordSuccess(reclaimed bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	now := time.Now()
	gm.lastSuccess = now
	gm.lastAttempt = now
	gm.runs++
	if reclaimed {
		gm.reclaimed++
	}
	gm.consecutiveErrors = 0
	gm.lastError = ""
}

// RecordFailure records a failed GC run.
func (gm *GCMonitor) RecordFailure(err error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	gm.lastAttempt = time.Now()
	gm.runs++
	gm.consecutiveErrors++
	if err != nil {
		gm.lastError = err.Error()
	}
}

// IsHealthy is false once GC has failed more than maxConsecutiveGCErrors
// times in a row. A loop that has not run yet is healthy.
func (gm *GCMonitor) IsHealthy() bool {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.healthy()
}

func (gm *GCMonitor) healthy() bool {
	return gm.consecutiveErrors <= maxConsecutiveGCErrors
}

// GCStatus is the GC section of the health response.
type GCStatus struct {
	Healthy           bool   `json:"healthy"`
	Runs              int    `json:"runs"`
	Reclaimed         int    `json:"reclaimed"`
	LastSuccess       string `json:"last_success,omitempty"`
	LastAttempt       string `json:"last_attempt,omitempty"`
	ConsecutiveErrors int    `json:"consecutive_errors,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

// Status returns current GC status for health checks.
func (gm *GCMonitor) Status() GCStatus {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	status := GCStatus{
		Healthy:   gm.healthy(),
		Runs:      gm.runs,
		Reclaimed: gm.reclaimed,
	}
	if !gm.lastSuccess.IsZero() {
		status.LastSuccess = gm.lastSuccess.Format(time.RFC3339)
	}
	if !gm.lastAttempt.IsZero() {
		status.LastAttempt = gm.lastAttempt.Format(time.RFC3339)
	}
	if gm.consecutiveErrors > 0 {
		status.ConsecutiveErrors = gm.consecutiveErrors
		status.LastError = gm.lastError
	}
	return status
}
