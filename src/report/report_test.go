package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/rental"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubLoader struct{}

func (stubLoader) Load() (*rental.Table, *rental.Table, error) {
	d1 := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 2)
	hourly := rental.NewTable(rental.Hourly, []rental.Record{
		{Date: d1, Hour: 5, Season: rental.Winter, Weather: rental.Clear, Casual: 1, Registered: 2, Total: 3},
	})
	daily := rental.NewTable(rental.Daily, []rental.Record{
		{Date: d1, Season: rental.Winter, Weather: rental.MistCloudy, Casual: 331, Registered: 654, Total: 985},
		{Date: d2, Season: rental.Winter, Weather: rental.MistCloudy, WorkingDay: true, Casual: 120, Registered: 1229, Total: 1349},
	})
	return hourly, daily, nil
}

func render(t *testing.T, ds dashboard.Dataset) *dashboard.Page {
	t.Helper()
	s := dashboard.NewSession(stubLoader{}, nil, nil)
	require.NoError(t, s.Load())
	page, err := s.Render(dashboard.Selection{Dataset: ds})
	require.NoError(t, err)
	return page
}

func TestWriteXLSXDaily(t *testing.T) {
	page := render(t, dashboard.DatasetDay)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(page, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetSeasonWeather, SheetUserTypes, SheetRFM, SheetRFMByDayType, SheetFiltered}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSeasonWeather, "C2")
	require.NoError(t, err)
	assert.Equal(t, "2334", v)

	rows, err := f.GetRows(SheetFiltered)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rental.ColDate, rows[0][0])
	assert.Equal(t, "2011-01-03", rows[2][0])
}

func TestWriteXLSXHourly(t *testing.T) {
	page := render(t, dashboard.DatasetHour)
	f, err := Workbook(page)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetHourly, SheetDayTypes, SheetFiltered}, f.GetSheetList())
	v, err := f.GetCellValue(SheetHourly, "A2")
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestTextLocalizesNumbers(t *testing.T) {
	page := render(t, dashboard.DatasetDay)

	var en bytes.Buffer
	require.NoError(t, Text(&en, page, "en"))
	assert.Contains(t, en.String(), "2,334")
	assert.Contains(t, en.String(), "Mist/Cloudy")
	assert.Contains(t, en.String(), "2011-01-03")

	var de bytes.Buffer
	require.NoError(t, Text(&de, page, "de"))
	assert.Contains(t, de.String(), "2.334")
}

func TestTextHourly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, render(t, dashboard.DatasetHour), "not a language"))
	assert.Contains(t, buf.String(), "05")
	assert.Contains(t, buf.String(), "Weekend")
}

// previewHeader 返回以 date 开头的表头行
func previewHeader(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "date ") {
			return line
		}
	}
	t.Fatal("没有找到明细表头")
	return ""
}

func TestTextPreviewHourColumn(t *testing.T) {
	var daily bytes.Buffer
	require.NoError(t, Text(&daily, render(t, dashboard.DatasetDay), "en"))
	assert.NotContains(t, previewHeader(t, daily.String()), "hour")
	assert.Contains(t, daily.String(), "2011-01-01  Winter")

	var hourly bytes.Buffer
	require.NoError(t, Text(&hourly, render(t, dashboard.DatasetHour), "en"))
	assert.Contains(t, previewHeader(t, hourly.String()), "hour")
	assert.Contains(t, hourly.String(), "2011-01-01  5")
}
