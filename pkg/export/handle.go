package export

import (
	"errors"
	"image"
	"sync"

	"github.com/nicktill/tinychart/pkg/render"
)

// ErrHandleReleased is returned when a handle is used after Release.
var ErrHandleReleased = errors.New("export handle released")

// Handle scopes access to one rendered chart for a single capture.
// The zero value is not usable; create handles with NewHandle.
type Handle struct {
	mu    sync.Mutex
	chart *render.Chart
}

// NewHandle takes a capture handle on a rendered chart.
func NewHandle(c *render.Chart) *Handle {
	return &Handle{chart: c}
}

// Capture returns the chart raster.
func (h *Handle) Capture() (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chart == nil {
		return nil, ErrHandleReleased
	}
	img := h.chart.Image()
	if img == nil {
		return nil, errors.New("chart has no raster")
	}
	return img, nil
}

// Release drops the reference to the chart. Safe to call more than once.
func (h *Handle) Release() {
	h.mu.Lock()
	h.chart = nil
	h.mu.Unlock()
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chart == nil
}
