package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/source"
	"github.com/nicktill/tinychart/pkg/widget"
)

type staticSource struct {
	samples []series.Sample
	err     error
}

func (s staticSource) Fetch(ctx context.Context) ([]series.Sample, error) {
	return s.samples, s.err
}

func days(n int) []series.Sample {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]series.Sample, n)
	for i := range out {
		out[i] = series.Sample{Timestamp: start.AddDate(0, 0, i).Format("2006-01-02"), Value: float64(i%5 + 1)}
	}
	return out
}

func newTestHub(t *testing.T, src source.Source) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(func(opts ...widget.Option) *widget.Widget {
		return widget.New(src, render.NewRenderer(), opts...)
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(ts.Close)
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor reads events until one matches.
func waitFor(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
}

func ofType(typ string) func(Event) bool {
	return func(ev Event) bool { return ev.Type == typ }
}

func decodeDataURL(t *testing.T, s string) []byte {
	t.Helper()
	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(s, prefix))
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, prefix))
	require.NoError(t, err)
	return b
}

func TestSession_InitialDailyView(t *testing.T) {
	hub, ts := newTestHub(t, staticSource{samples: days(40)})
	conn := dial(t, ts)

	hello := waitFor(t, conn, ofType(EventSession))
	_, err := uuid.Parse(hello.Session)
	require.NoError(t, err)
	require.Equal(t, "chart.png", hello.Filename)

	state := waitFor(t, conn, ofType(EventState))
	require.Equal(t, "loading", state.Phase)
	require.Equal(t, series.Daily, state.Timeframe)

	chart := waitFor(t, conn, ofType(EventChart))
	require.NotNil(t, chart.Points)
	require.Equal(t, 40, *chart.Points)
	require.Equal(t, 800, chart.Width)
	require.Equal(t, 400, chart.Height)

	img, err := png.Decode(bytes.NewReader(decodeDataURL(t, chart.Image)))
	require.NoError(t, err)
	require.Equal(t, 800, img.Bounds().Dx())

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSession_SelectTimeframes(t *testing.T) {
	_, ts := newTestHub(t, staticSource{samples: days(40)})
	conn := dial(t, ts)
	waitFor(t, conn, ofType(EventChart))

	tests := []struct {
		timeframe string
		want      series.Timeframe
		points    int
	}{
		{"weekly", series.Weekly, 6},
		{"monthly", series.Monthly, 2},
		{"daily", series.Daily, 40},
	}
	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(Command{Type: CommandSelect, Timeframe: tt.timeframe}))
			chart := waitFor(t, conn, ofType(EventChart))
			require.Equal(t, tt.want, chart.Timeframe)
			require.NotNil(t, chart.Points)
			require.Equal(t, tt.points, *chart.Points)
		})
	}
}

func TestSession_Click(t *testing.T) {
	_, ts := newTestHub(t, staticSource{samples: days(10)})
	conn := dial(t, ts)
	waitFor(t, conn, ofType(EventChart))

	idx := 3
	require.NoError(t, conn.WriteJSON(Command{Type: CommandClick, Index: &idx}))
	ev := waitFor(t, conn, ofType(EventClick))
	require.Equal(t, "2024-03-04", ev.Timestamp)
	require.Equal(t, 3, *ev.Index)
	require.Equal(t, 4.0, *ev.Value)
	require.Equal(t, "Timestamp: 2024-03-04\nValue: 4", ev.Message)
	require.NotEmpty(t, decodeDataURL(t, ev.Image))

	// Far outside the plot area
	require.NoError(t, conn.WriteJSON(Command{Type: CommandClick, X: 5000, Y: 5000}))
	errEv := waitFor(t, conn, ofType(EventError))
	require.Equal(t, "state", errEv.Kind)
}

func TestSession_ZeroValuesOnWire(t *testing.T) {
	t.Run("empty chart", func(t *testing.T) {
		_, ts := newTestHub(t, staticSource{samples: []series.Sample{}})
		conn := dial(t, ts)

		chart := waitFor(t, conn, ofType(EventChart))
		require.NotNil(t, chart.Points)
		require.Equal(t, 0, *chart.Points)
	})

	t.Run("single zero sample", func(t *testing.T) {
		_, ts := newTestHub(t, staticSource{samples: []series.Sample{{Timestamp: "2024-03-01", Value: 0}}})
		conn := dial(t, ts)

		chart := waitFor(t, conn, ofType(EventChart))
		require.Equal(t, 1, *chart.Points)

		idx := 0
		require.NoError(t, conn.WriteJSON(Command{Type: CommandClick, Index: &idx}))
		ev := waitFor(t, conn, ofType(EventClick))
		require.NotNil(t, ev.Index)
		require.NotNil(t, ev.Value)
		require.Equal(t, 0, *ev.Index)
		require.Equal(t, 0.0, *ev.Value)
		require.Equal(t, "Timestamp: 2024-03-01\nValue: 0", ev.Message)
	})
}

func TestSession_Export(t *testing.T) {
	_, ts := newTestHub(t, staticSource{samples: days(10)})
	conn := dial(t, ts)
	waitFor(t, conn, ofType(EventChart))

	require.NoError(t, conn.WriteJSON(Command{Type: CommandExport}))
	ev := waitFor(t, conn, ofType(EventExport))
	require.Equal(t, "chart.png", ev.Filename)

	_, err := png.Decode(bytes.NewReader(decodeDataURL(t, ev.Image)))
	require.NoError(t, err)
}

func TestSession_FetchFailure(t *testing.T) {
	fetchErr := &source.FetchError{Location: "http://localhost:8080/data.json", Err: errors.New("connection refused")}
	_, ts := newTestHub(t, staticSource{err: fetchErr})
	conn := dial(t, ts)

	state := waitFor(t, conn, func(ev Event) bool { return ev.Type == EventState && ev.Phase == "failed" })
	require.Equal(t, series.Daily, state.Timeframe)

	ev := waitFor(t, conn, ofType(EventError))
	require.Equal(t, "fetch", ev.Kind)
	require.Contains(t, ev.Error, "connection refused")

	// Nothing to export without a chart
	require.NoError(t, conn.WriteJSON(Command{Type: CommandExport}))
	ev = waitFor(t, conn, ofType(EventError))
	require.Equal(t, "export", ev.Kind)
}

func TestSession_UnknownCommand(t *testing.T) {
	_, ts := newTestHub(t, staticSource{samples: days(3)})
	conn := dial(t, ts)
	waitFor(t, conn, ofType(EventChart))

	require.NoError(t, conn.WriteJSON(Command{Type: "zoom"}))
	ev := waitFor(t, conn, ofType(EventError))
	require.Equal(t, "command", ev.Kind)
}

func TestSession_Disconnect(t *testing.T) {
	hub, ts := newTestHub(t, staticSource{samples: days(3)})
	conn := dial(t, ts)
	waitFor(t, conn, ofType(EventChart))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSession_RejectsCrossOrigin(t *testing.T) {
	_, ts := newTestHub(t, staticSource{samples: days(3)})
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
