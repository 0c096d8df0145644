package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/series"
)

// RenderError is returned when the chart library fails to draw or encode a chart.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render chart: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer draws line charts with a fixed, timeframe-independent configuration.
type Renderer struct {
	Width     int
	Height    int
	LineColor string // hex without '#'
	GridColor string
	MaxXTicks int
}

// NewRenderer returns a renderer with the default chart geometry and colors.
func NewRenderer() *Renderer {
	return &Renderer{
		Width:     config.ChartWidth,
		Height:    config.ChartHeight,
		LineColor: config.LineColor,
		GridColor: config.GridColor,
		MaxXTicks: config.MaxXTicks,
	}
}

// Point is one plotted sample with its pixel position on the chart.
type Point struct {
	Index     int
	Timestamp string
	Value     float64
	X, Y      int
}

// Message is the text reported when a point is clicked.
func (p Point) Message() string {
	return fmt.Sprintf("Timestamp: %s\nValue: %s", p.Timestamp, FormatValue(p.Value))
}

// FormatValue prints a value with the shortest exact representation.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Chart is a rendered line chart plus the geometry needed to map pixels back to points.
type Chart struct {
	png    []byte
	img    image.Image
	points []Point
	plot   image.Rectangle

	lineColor color.Color
}

// PNG returns the encoded chart.
func (c *Chart) PNG() []byte {
	return c.png
}

// Image returns the decoded chart raster.
func (c *Chart) Image() image.Image {
	return c.img
}

// Len is the number of plotted points.
func (c *Chart) Len() int {
	return len(c.points)
}

// Bounds is the size of the chart canvas.
func (c *Chart) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// PlotArea is the region inside the axes where the series is drawn.
func (c *Chart) PlotArea() image.Rectangle {
	return c.plot
}

// Point returns the i-th plotted point.
func (c *Chart) Point(i int) (Point, bool) {
	if i < 0 || i >= len(c.points) {
		return Point{}, false
	}
	return c.points[i], true
}

// PointAt resolves a click to the category nearest to x.
// Clicks outside the plot area select nothing.
func (c *Chart) PointAt(x, y int) (Point, bool) {
	if len(c.points) == 0 {
		return Point{}, false
	}
	if !image.Pt(x, y).In(c.plot.Inset(-1)) {
		return Point{}, false
	}

	best := 0
	bestDist := math.MaxInt
	for i, p := range c.points {
		d := p.X - x
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return c.points[best], true
}

// Render draws samples as a line chart. The x axis is categorical: one slot
// per sample in input order, labeled with the sample timestamp.
func (r *Renderer) Render(samples []series.Sample) (*Chart, error) {
	if len(samples) == 0 {
		return r.blank()
	}

	ys := series.Values(samples)
	xs := make([]float64, len(samples))
	for i := range xs {
		xs[i] = float64(i)
	}

	xRange := &chart.ContinuousRange{Min: 0, Max: float64(len(samples) - 1)}
	if len(samples) == 1 {
		xRange = &chart.ContinuousRange{Min: -0.5, Max: 0.5}
	}
	yMin, yMax := paddedRange(ys)
	yRange := &chart.ContinuousRange{Min: yMin, Max: yMax}

	grid := chart.Style{
		StrokeColor: drawing.ColorFromHex(r.GridColor),
		StrokeWidth: 1,
	}
	line := drawing.ColorFromHex(r.LineColor)

	var canvas chart.Box
	ch := chart.Chart{
		Width:  r.Width,
		Height: r.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 30, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Range:          xRange,
			Ticks:          r.xTicks(samples, xRange.Min, xRange.Max),
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		YAxis: chart.YAxis{
			Range:          yRange,
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "value",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: line,
					StrokeWidth: 2,
					DotColor:    line,
					DotWidth:    3,
				},
			},
		},
	}
	// Runs last, after axes have settled the final plot box
	ch.Elements = []chart.Renderable{
		func(_ chart.Renderer, box chart.Box, _ chart.Style) {
			canvas = box
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, &RenderError{Err: err}
	}

	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("decode rendered png: %w", err)}
	}

	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{
			Index:     i,
			Timestamp: s.Timestamp,
			Value:     s.Value,
			X:         canvas.Left + translate(xs[i], xRange.Min, xRange.Max, canvas.Width()),
			Y:         canvas.Bottom - translate(ys[i], yRange.Min, yRange.Max, canvas.Height()),
		}
	}

	return &Chart{
		png:    buf.Bytes(),
		img:    img,
		points: points,
		plot:   image.Rect(canvas.Left, canvas.Top, canvas.Right, canvas.Bottom),

		lineColor: color.RGBA{R: line.R, G: line.G, B: line.B, A: line.A},
	}, nil
}

// blank returns a white canvas of the configured size.
func (r *Renderer) blank() (*Chart, error) {
	rgba := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, &RenderError{Err: err}
	}
	return &Chart{png: buf.Bytes(), img: rgba}, nil
}

// xTicks labels categories with their timestamps, thinned to MaxXTicks.
// go-chart resets the x range to the outermost ticks, so the result always
// carries a tick at lo and at hi; ticks with no label only pin the range.
func (r *Renderer) xTicks(samples []series.Sample, lo, hi float64) []chart.Tick {
	limit := r.MaxXTicks
	if limit <= 0 {
		limit = config.MaxXTicks
	}
	step := (len(samples) + limit - 1) / limit
	if step < 1 {
		step = 1
	}

	ticks := make([]chart.Tick, 0, limit+2)
	if lo < 0 {
		ticks = append(ticks, chart.Tick{Value: lo})
	}
	last := 0
	for i := 0; i < len(samples); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: samples[i].Timestamp})
		last = i
	}
	if float64(last) < hi {
		ticks = append(ticks, chart.Tick{Value: hi})
	}
	return ticks
}

// paddedRange returns a y range around values that is never empty.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad
}

// translate maps a value into pixel offsets the same way go-chart's ContinuousRange does.
func translate(v, min, max float64, domain int) int {
	ratio := (v - min) / (max - min)
	return int(math.Ceil(ratio * float64(domain)))
}
