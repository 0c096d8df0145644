package widget

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/nicktill/tinychart/pkg/aggregate"
	"github.com/nicktill/tinychart/pkg/export"
	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/source"
)

var (
	// ErrSuperseded is returned by Select when a later selection started
	// before this one finished. Its result is discarded.
	ErrSuperseded = errors.New("selection superseded by a newer one")

	// ErrNotLoaded is returned by operations that need a rendered chart.
	ErrNotLoaded = errors.New("chart is not loaded")

	// ErrNoPoint is returned when a click does not land on the plot area.
	ErrNoPoint = errors.New("no point at click position")
)

// Phase is the state of the widget's view.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// View is an immutable snapshot of the widget state.
type View struct {
	Phase      Phase
	Timeframe  series.Timeframe
	Generation uint64

	// Set in Loaded
	Data  []series.Sample
	Chart *render.Chart

	// Set in Failed
	Err error
}

// Option configures a Widget.
type Option func(*Widget)

// OnChange registers fn to be called after every state transition.
func OnChange(fn func(View)) Option {
	return func(w *Widget) {
		w.listeners = append(w.listeners, fn)
	}
}

// WithExporter replaces the default chart.png exporter.
func WithExporter(e *export.Exporter) Option {
	return func(w *Widget) {
		w.exporter = e
	}
}

// Widget fetches a series, aggregates it for the selected timeframe and
// renders it. Every selection refetches from the source.
type Widget struct {
	src       source.Source
	renderer  *render.Renderer
	exporter  *export.Exporter
	listeners []func(View)

	mu   sync.Mutex
	gen  uint64
	view View
}

// New creates a widget in the Idle phase.
func New(src source.Source, r *render.Renderer, opts ...Option) *Widget {
	w := &Widget{
		src:      src,
		renderer: r,
		exporter: export.NewExporter(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// View returns the current state.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Select switches to tf: Loading, then Loaded or Failed. The aggregator only
// runs once samples were fetched. If another Select starts before this one
// completes, this one returns ErrSuperseded and leaves the state alone.
func (w *Widget) Select(ctx context.Context, tf series.Timeframe) error {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.view = View{Phase: Loading, Timeframe: tf, Generation: gen}
	loading := w.view
	w.mu.Unlock()
	w.notify(loading)

	samples, err := w.src.Fetch(ctx)
	if err != nil {
		return w.fail(gen, tf, err)
	}

	data, err := aggregate.Apply(samples, tf)
	if err != nil {
		return w.fail(gen, tf, err)
	}

	chart, err := w.renderer.Render(data)
	if err != nil {
		return w.fail(gen, tf, err)
	}

	return w.complete(gen, View{
		Phase:      Loaded,
		Timeframe:  tf,
		Generation: gen,
		Data:       data,
		Chart:      chart,
	})
}

func (w *Widget) fail(gen uint64, tf series.Timeframe, err error) error {
	if cerr := w.complete(gen, View{Phase: Failed, Timeframe: tf, Generation: gen, Err: err}); cerr != nil {
		return cerr
	}
	return err
}

// complete installs v if gen is still the latest selection.
func (w *Widget) complete(gen uint64, v View) error {
	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		return ErrSuperseded
	}
	w.view = v
	w.mu.Unlock()

	w.notify(v)
	return nil
}

func (w *Widget) notify(v View) {
	for _, fn := range w.listeners {
		fn(v)
	}
}

// Click resolves a click at pixel (x, y) on the chart to a point.
func (w *Widget) Click(x, y int) (render.Point, error) {
	v := w.View()
	if v.Phase != Loaded {
		return render.Point{}, ErrNotLoaded
	}
	p, ok := v.Chart.PointAt(x, y)
	if !ok {
		return render.Point{}, ErrNoPoint
	}
	return p, nil
}

// ClickIndex selects the i-th point of the loaded chart.
func (w *Widget) ClickIndex(i int) (render.Point, error) {
	v := w.View()
	if v.Phase != Loaded {
		return render.Point{}, ErrNotLoaded
	}
	p, ok := v.Chart.Point(i)
	if !ok {
		return render.Point{}, ErrNoPoint
	}
	return p, nil
}

// Tooltip renders the chart with the tooltip for point i drawn on top.
func (w *Widget) Tooltip(i int) (image.Image, error) {
	v := w.View()
	if v.Phase != Loaded {
		return nil, ErrNotLoaded
	}
	return v.Chart.Tooltip(i)
}

// Export writes the loaded chart as PNG through a fresh export handle.
func (w *Widget) Export(ctx context.Context, out io.Writer) error {
	v := w.View()
	if v.Phase != Loaded {
		return &export.ExportError{Op: "capture", Err: ErrNotLoaded}
	}
	return w.exporter.ExportChart(ctx, v.Chart, out)
}

// Filename is the download name for exports.
func (w *Widget) Filename() string {
	return w.exporter.Filename
}

// ErrorKind classifies a widget error for reporting to users.
func ErrorKind(err error) string {
	var (
		fetchErr  *source.FetchError
		aggErr    *aggregate.AggregationError
		renderErr *render.RenderError
		exportErr *export.ExportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &aggErr):
		return "aggregation"
	case errors.As(err, &renderErr):
		return "render"
	case errors.As(err, &exportErr):
		return "export"
	case errors.Is(err, ErrNotLoaded), errors.Is(err, ErrNoPoint):
		return "state"
	default:
		return "internal"
	}
}
