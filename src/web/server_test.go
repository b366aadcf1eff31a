package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/metrics"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubLoader struct {
	daily *rental.Table
	err   error
}

func (l *stubLoader) Load() (*rental.Table, *rental.Table, error) {
	if l.err != nil {
		return nil, nil, l.err
	}
	d := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	hourly := rental.NewTable(rental.Hourly, []rental.Record{
		{Date: d, Hour: 7, Season: rental.Winter, Weather: rental.Clear, Casual: 1, Registered: 1, Total: 2},
	})
	return hourly, l.daily, nil
}

func dailyTable() *rental.Table {
	d := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	return rental.NewTable(rental.Daily, []rental.Record{
		{Date: d, Season: rental.Winter, Weather: rental.Clear, Casual: 10, Registered: 10, Total: 20},
		{Date: d.AddDate(0, 0, 1), Season: rental.Winter, Weather: rental.Clear, Casual: 5, Registered: 25, Total: 30},
	})
}

func newTestServer(t *testing.T, loaded bool) (*httptest.Server, *stubLoader, *storage.Logger) {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	loader := &stubLoader{daily: dailyTable()}
	recorder := metrics.NewPrometheusRecorder()
	session := dashboard.NewSession(loader, logger, recorder)
	if loaded {
		require.NoError(t, session.Load())
	}

	srv := httptest.NewServer(NewServer(session, logger, recorder.GetRegistry(), "en").Routes())
	t.Cleanup(srv.Close)
	return srv, loader, logger
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestViewDay(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	var body struct {
		ID            string `json:"id"`
		Rows          int    `json:"rows"`
		SeasonWeather struct {
			Cells [4][4]int `json:"cells"`
		} `json:"season_weather"`
		Preview []map[string]interface{} `json:"preview"`
	}
	status := getJSON(t, srv.URL+"/api/view?dataset=day&start=2011-01-01&end=2011-01-02", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, 2, body.Rows)
	assert.Equal(t, 50, body.SeasonWeather.Cells[0][0])
	require.Len(t, body.Preview, 2)
	assert.Equal(t, "Winter", body.Preview[0]["season"])
	assert.NotContains(t, body.Preview[0], "hour")
}

func TestViewHour(t *testing.T) {
	srv, _, _ := newTestServer(t, true)
	var body struct {
		Hourly  []map[string]int         `json:"hourly"`
		Preview []map[string]interface{} `json:"preview"`
	}
	status := getJSON(t, srv.URL+"/api/view?dataset=hour", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]int{{"hour": 7, "records": 1}}, body.Hourly)
	assert.Equal(t, 7.0, body.Preview[0]["hour"])
}

func TestViewErrors(t *testing.T) {
	srv, _, _ := newTestServer(t, false)
	var body errorResponse

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/api/view", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/view?dataset=week", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/view?start=01/02/2011", &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestViewCategoricalError(t *testing.T) {
	srv, loader, _ := newTestServer(t, false)
	records := loader.daily.Records()
	records[0].Weather = rental.Weather(6)
	loader.daily = rental.NewTable(rental.Daily, records)

	resp, err := http.Post(srv.URL+"/api/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body errorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, getJSON(t, srv.URL+"/api/view", &body))
}

func TestReloadFailure(t *testing.T) {
	srv, loader, _ := newTestServer(t, true)
	loader.err = &rental.SchemaMismatchError{Source: "day", Column: "cnt", Row: -1}

	resp, err := http.Post(srv.URL+"/api/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReports(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/api/report.xlsx?dataset=day")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "rental-day-")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "SeasonWeather")

	txt, err := http.Get(srv.URL + "/api/report.txt?dataset=day&lang=de")
	require.NoError(t, err)
	defer txt.Body.Close()
	assert.Equal(t, http.StatusOK, txt.StatusCode)
	assert.Contains(t, txt.Header.Get("Content-Type"), "text/plain")
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &health))
	assert.Equal(t, true, health["loaded"])

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)
	found := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "rental_load_total") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLogsStream(t *testing.T) {
	srv, _, logger := newTestServer(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/logs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), "流式日志") {
				lines <- scanner.Text()
				return
			}
		}
	}()

	// 订阅发生在响应头写出之前，此时写日志一定能被收到
	logger.Info("流式日志")
	select {
	case line := <-lines:
		assert.Contains(t, line, "INFO")
	case <-time.After(2 * time.Second):
		t.Fatal("没有收到日志")
	}
}
