package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/nicktill/tinychart/pkg/series"
)

func sampleSeries() []series.Sample {
	return []series.Sample{
		{Timestamp: "2024-01-01", Value: 10},
		{Timestamp: "2024-01-08", Value: 30},
		{Timestamp: "2024-01-15", Value: 20},
	}
}

func TestRender_LineChart(t *testing.T) {
	r := NewRenderer()

	c, err := r.Render(sampleSeries())
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	img, err := png.Decode(bytes.NewReader(c.PNG()))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
	assert.Equal(t, img.Bounds(), c.Bounds())

	plot := c.PlotArea()
	require.False(t, plot.Empty())

	p0, _ := c.Point(0)
	p1, _ := c.Point(1)
	p2, _ := c.Point(2)

	// Category axis: x strictly increasing in input order
	assert.Less(t, p0.X, p1.X)
	assert.Less(t, p1.X, p2.X)

	// Larger values sit higher on the canvas
	assert.Less(t, p1.Y, p2.Y)
	assert.Less(t, p2.Y, p0.Y)

	for i := 0; i < c.Len(); i++ {
		p, _ := c.Point(i)
		assert.True(t, p.X >= plot.Min.X && p.X <= plot.Max.X, "point %d x outside plot", i)
		assert.True(t, p.Y >= plot.Min.Y && p.Y <= plot.Max.Y, "point %d y outside plot", i)
	}
}

func TestRender_EmptyIsBlankCanvas(t *testing.T) {
	r := NewRenderer()

	c, err := r.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.NotEmpty(t, c.PNG())
	assert.Equal(t, 800, c.Bounds().Dx())

	_, ok := c.PointAt(400, 200)
	assert.False(t, ok)
}

func TestRender_DegenerateRanges(t *testing.T) {
	r := NewRenderer()

	t.Run("single sample", func(t *testing.T) {
		c, err := r.Render([]series.Sample{{Timestamp: "2024-01-01", Value: 7}})
		require.NoError(t, err)
		require.Equal(t, 1, c.Len())

		plot := c.PlotArea()
		p, ok := c.PointAt(plot.Min.X+1, plot.Min.Y+1)
		require.True(t, ok)
		assert.Equal(t, "2024-01-01", p.Timestamp)

		// Centered between the padded edges
		assert.InDelta(t, (plot.Min.X+plot.Max.X)/2, p.X, 1)
	})

	t.Run("constant values", func(t *testing.T) {
		samples := []series.Sample{
			{Timestamp: "a", Value: 5},
			{Timestamp: "b", Value: 5},
			{Timestamp: "c", Value: 5},
		}
		c, err := r.Render(samples)
		require.NoError(t, err)

		p0, _ := c.Point(0)
		p2, _ := c.Point(2)
		assert.Equal(t, p0.Y, p2.Y)
	})

	t.Run("many samples", func(t *testing.T) {
		samples := make([]series.Sample, 365)
		for i := range samples {
			samples[i] = series.Sample{Timestamp: "t", Value: float64(i % 17)}
		}
		labeled := 0
		for _, tick := range r.xTicks(samples, 0, 364) {
			if tick.Label != "" {
				labeled++
			}
		}
		assert.LessOrEqual(t, labeled, r.MaxXTicks)

		c, err := r.Render(samples)
		require.NoError(t, err)
		assert.Equal(t, 365, c.Len())
	})
}

func TestChart_PointAt(t *testing.T) {
	c, err := NewRenderer().Render(sampleSeries())
	require.NoError(t, err)

	for i := 0; i < c.Len(); i++ {
		want, _ := c.Point(i)
		got, ok := c.PointAt(want.X, c.PlotArea().Min.Y+5)
		require.True(t, ok)
		assert.Equal(t, want, got)

		// Nearest category wins, y does not matter inside the plot
		off := 2
		if i == c.Len()-1 {
			off = -2
		}
		got, ok = c.PointAt(want.X+off, c.PlotArea().Max.Y-1)
		require.True(t, ok)
		assert.Equal(t, i, got.Index)
	}

	_, ok := c.PointAt(0, 0)
	assert.False(t, ok)
	_, ok = c.PointAt(c.Bounds().Max.X+10, c.PlotArea().Min.Y+5)
	assert.False(t, ok)
}

func TestRenderer_XTicksSpanRange(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name   string
		n      int
		lo, hi float64
	}{
		{"single", 1, -0.5, 0.5},
		{"unthinned", 3, 0, 2},
		{"thinned ends on stride", 31, 0, 30},
		{"thinned ends off stride", 26, 0, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]series.Sample, tt.n)
			for i := range samples {
				samples[i] = series.Sample{Timestamp: fmt.Sprintf("t%d", i), Value: float64(i)}
			}
			ticks := r.xTicks(samples, tt.lo, tt.hi)
			require.NotEmpty(t, ticks)
			assert.Equal(t, tt.lo, ticks[0].Value)
			assert.Equal(t, tt.hi, ticks[len(ticks)-1].Value)
			assert.Equal(t, "t0", ticks[labelIndex(ticks)].Label)
		})
	}
}

func labelIndex(ticks []chart.Tick) int {
	for i, tick := range ticks {
		if tick.Label != "" {
			return i
		}
	}
	return -1
}

func TestRender_ThinnedPointsInsidePlot(t *testing.T) {
	r := NewRenderer()

	for _, n := range []int{2, 11, 26, 40, 95} {
		samples := make([]series.Sample, n)
		for i := range samples {
			samples[i] = series.Sample{Timestamp: fmt.Sprintf("d%d", i), Value: float64(i % 5)}
		}
		c, err := r.Render(samples)
		require.NoError(t, err, "n=%d", n)

		plot := c.PlotArea()
		for i := 0; i < c.Len(); i++ {
			p, _ := c.Point(i)
			assert.True(t, p.X >= plot.Min.X && p.X <= plot.Max.X, "n=%d point %d x=%d outside %v", n, i, p.X, plot)
		}

		last, _ := c.Point(n - 1)
		assert.Equal(t, plot.Max.X, last.X, "n=%d", n)
		got, ok := c.PointAt(plot.Max.X-1, plot.Min.Y+5)
		require.True(t, ok)
		assert.Equal(t, n-1, got.Index, "n=%d", n)
	}
}

func TestPoint_Message(t *testing.T) {
	tests := []struct {
		p    Point
		want string
	}{
		{Point{Timestamp: "2024-01-01", Value: 15}, "Timestamp: 2024-01-01\nValue: 15"},
		{Point{Timestamp: "2024-01-08", Value: 4.5}, "Timestamp: 2024-01-08\nValue: 4.5"},
		{Point{Timestamp: "x", Value: -0.25}, "Timestamp: x\nValue: -0.25"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.Message())
	}
}

func TestChart_Tooltip(t *testing.T) {
	c, err := NewRenderer().Render(sampleSeries())
	require.NoError(t, err)

	img, err := c.Tooltip(2)
	require.NoError(t, err)
	assert.Equal(t, c.Bounds(), img.Bounds())

	_, err = c.Tooltip(3)
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
}
