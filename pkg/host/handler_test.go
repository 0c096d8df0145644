package host

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinychart/pkg/export"
	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/source"
)

type stubSource struct {
	samples []series.Sample
	err     error
}

func (s stubSource) Fetch(ctx context.Context) ([]series.Sample, error) {
	return s.samples, s.err
}

func fortnight() []series.Sample {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]series.Sample, 14)
	for i := range out {
		out[i] = series.Sample{Timestamp: start.AddDate(0, 0, i).Format("2006-01-02"), Value: float64(i + 1)}
	}
	return out
}

func newTestRouter(t *testing.T, src source.Source) *mux.Router {
	t.Helper()
	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, WidgetPage), []byte("<html>widget</html>"), 0o644))

	h := NewHandler("http://localhost:8080/data.json", src, render.NewRenderer(), webDir)
	router := mux.NewRouter()
	h.SetupRoutes(router)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleChart(t *testing.T) {
	router := newTestRouter(t, stubSource{samples: fortnight()})

	rr := get(router, "/v1/chart.png?timeframe=weekly")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	require.Equal(t, 800, img.Bounds().Dx())
	require.Equal(t, 400, img.Bounds().Dy())
}

func TestHandleExport(t *testing.T) {
	router := newTestRouter(t, stubSource{samples: fortnight()})

	rr := get(router, "/v1/chart/export")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "attachment; filename=chart.png", rr.Header().Get("Content-Disposition"))

	_, err := png.Decode(rr.Body)
	require.NoError(t, err)
}

func TestHandleSeries(t *testing.T) {
	router := newTestRouter(t, stubSource{samples: fortnight()})

	rr := get(router, "/v1/series?timeframe=weekly")
	require.Equal(t, http.StatusOK, rr.Code)

	var doc export.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	require.Equal(t, "weekly", doc.Metadata.Timeframe)
	require.Equal(t, []series.Sample{
		{Timestamp: "2024-01-01", Value: 4},
		{Timestamp: "2024-01-08", Value: 11},
	}, doc.Samples)

	rr = get(router, "/v1/series?timeframe=daily&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 15)
	require.Equal(t, []string{"2024-01-14", "14"}, rows[14])
}

func TestHandlers_Errors(t *testing.T) {
	fetchErr := &source.FetchError{Location: "http://localhost:8080/data.json", Err: errors.New("connection refused")}
	badTimestamps := []series.Sample{{Timestamp: "2024-01-01", Value: 1}, {Timestamp: "soon", Value: 2}}

	tests := []struct {
		name       string
		src        source.Source
		path       string
		wantStatus int
	}{
		{"unknown timeframe", stubSource{samples: fortnight()}, "/v1/chart.png?timeframe=hourly", http.StatusBadRequest},
		{"bad format", stubSource{samples: fortnight()}, "/v1/series?format=xml", http.StatusBadRequest},
		{"source down", stubSource{err: fetchErr}, "/v1/chart.png", http.StatusBadGateway},
		{"unparseable timestamp", stubSource{samples: badTimestamps}, "/v1/chart/export?timeframe=monthly", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(newTestRouter(t, tt.src), tt.path)
			require.Equal(t, tt.wantStatus, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestHandlePage(t *testing.T) {
	router := newTestRouter(t, stubSource{})

	rr := get(router, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "widget")
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, stubSource{})

	rr := get(router, "/v1/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, 0, resp.Sessions)
}
