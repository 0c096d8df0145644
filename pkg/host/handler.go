package host

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/export"
	"github.com/nicktill/tinychart/pkg/httpx"
	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/session"
	"github.com/nicktill/tinychart/pkg/source"
	"github.com/nicktill/tinychart/pkg/widget"
)

// WidgetPage is the file served at /.
const WidgetPage = "widget.html"

// Handler serves the widget page, its websocket sessions and one-shot
// chart endpoints for a single data source.
type Handler struct {
	src      source.Source
	location string
	renderer *render.Renderer
	hub      *session.Hub
	webDir   string
	started  time.Time
}

// NewHandler creates a widget host for the data source at location.
func NewHandler(location string, src source.Source, renderer *render.Renderer, webDir string) *Handler {
	h := &Handler{
		src:      src,
		location: location,
		renderer: renderer,
		webDir:   webDir,
		started:  time.Now(),
	}
	h.hub = session.NewHub(h.NewWidget)
	return h
}

// NewWidget builds a widget over the host's source and renderer.
func (h *Handler) NewWidget(opts ...widget.Option) *widget.Widget {
	return widget.New(h.src, h.renderer, opts...)
}

// Hub returns the websocket session hub. Callers must Run it.
func (h *Handler) Hub() *session.Hub {
	return h.hub
}

// SetupRoutes registers the widget host routes.
func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/v1/ws", h.hub.HandleWebSocket).Methods("GET")
	router.HandleFunc("/v1/chart.png", h.HandleChart).Methods("GET")
	router.HandleFunc("/v1/chart/export", h.HandleExport).Methods("GET")
	router.HandleFunc("/v1/series", h.HandleSeries).Methods("GET")
	router.HandleFunc("/v1/health", h.HandleHealth).Methods("GET")

	router.HandleFunc("/", h.HandlePage).Methods("GET")
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.webDir))).Methods("GET")
}

// HandlePage serves the widget page.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.webDir, WidgetPage))
}

// HandleChart renders the requested view and returns it as image/png.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	v, _, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(v.Chart.PNG())
}

// HandleExport renders the requested view and returns it as a chart.png download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	_, wdg, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := wdg.Export(r.Context(), &buf); err != nil {
		log.Printf("❌ Export failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}

	httpx.Attachment(w, "image/png", wdg.Filename())
	w.Write(buf.Bytes())
}

// HandleSeries returns the aggregated series for a view as JSON or CSV.
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "format must be 'json' or 'csv'")
		return
	}

	v, _, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "csv":
		err = export.WriteCSV(&buf, v.Data)
		w.Header().Set("Content-Type", "text/csv")
	default:
		err = export.WriteJSON(&buf, export.Metadata{
			Dataset:   h.location,
			Timeframe: string(v.Timeframe),
		}, v.Data)
		w.Header().Set("Content-Type", "application/json")
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Write(buf.Bytes())
}

// HealthResponse reports widget host status.
type HealthResponse struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

// HandleHealth reports liveness and the number of open widget sessions.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Source:   h.location,
		Sessions: h.hub.Count(),
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	})
}

// load runs a one-shot widget for the timeframe query parameter. On failure
// it writes the error response and returns ok=false.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (widget.View, *widget.Widget, bool) {
	tf, valid := series.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if !valid {
		httpx.RespondErrorString(w, http.StatusBadRequest, fmt.Sprintf("unknown timeframe %q", tf))
		return widget.View{}, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.RenderTimeout)
	defer cancel()

	wdg := h.NewWidget()
	if err := wdg.Select(ctx, tf); err != nil {
		log.Printf("❌ %s view failed: %v", tf, err)
		httpx.RespondError(w, statusFor(err), err)
		return widget.View{}, nil, false
	}
	return wdg.View(), wdg, true
}

func statusFor(err error) int {
	switch widget.ErrorKind(err) {
	case "fetch":
		return http.StatusBadGateway
	case "aggregation":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
