package rental

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDayTypePrecedence(t *testing.T) {
	cases := []struct {
		holiday, working bool
		want             DayType
	}{
		{true, true, Holiday},
		{true, false, Holiday},
		{false, false, Weekend},
		{false, true, Workingday},
	}
	for _, c := range cases {
		r := Record{Holiday: c.holiday, WorkingDay: c.working}
		assert.Equal(t, c.want, r.DayType())
	}
}

func TestPartitionUsesWorkingDayOnly(t *testing.T) {
	assert.Equal(t, WeekdayPartition, Record{Holiday: true, WorkingDay: true}.Partition())
	assert.Equal(t, WeekendPartition, Record{Holiday: true, WorkingDay: false}.Partition())
	assert.Equal(t, WeekendPartition, Record{}.Partition())
}

func TestLabelsRejectUnknownCodes(t *testing.T) {
	label, err := Summer.Label()
	require.NoError(t, err)
	assert.Equal(t, "Summer", label)

	_, err = Season(5).Label()
	assert.True(t, errors.Is(err, ErrCategoricalMapping))

	label, err = MistCloudy.Label()
	require.NoError(t, err)
	assert.Equal(t, "Mist/Cloudy", label)

	_, err = Weather(0).Label()
	var mapErr *CategoricalMappingError
	require.True(t, errors.As(err, &mapErr))
	assert.Equal(t, "weather_situation", mapErr.Dimension)
}

func TestTableIsNotAliasedByCaller(t *testing.T) {
	in := []Record{{Date: date("2011-01-01"), Total: 3, Casual: 1, Registered: 2}}
	tbl := NewTable(Daily, in)
	in[0].Total = 99

	assert.Equal(t, 3, tbl.At(0).Total)

	out := tbl.Records()
	out[0].Total = 42
	assert.Equal(t, 3, tbl.At(0).Total)
}

func TestDateBounds(t *testing.T) {
	tbl := NewTable(Daily, []Record{
		{Date: date("2011-01-03")},
		{Date: date("2011-01-01")},
		{Date: date("2011-01-02")},
	})
	min, max, ok := tbl.DateBounds()
	require.True(t, ok)
	assert.Equal(t, date("2011-01-01"), min)
	assert.Equal(t, date("2011-01-03"), max)

	_, _, ok = NewTable(Daily, nil).DateBounds()
	assert.False(t, ok)
}

func TestTotalMismatches(t *testing.T) {
	tbl := NewTable(Daily, []Record{
		{Casual: 1, Registered: 2, Total: 3},
		{Casual: 1, Registered: 2, Total: 4},
	})
	assert.Equal(t, []int{1}, tbl.TotalMismatches())
}

func TestFrameColumns(t *testing.T) {
	hourly := NewTable(Hourly, []Record{
		{Date: date("2011-01-01"), Hour: 5, Season: Winter, Weather: Clear, WorkingDay: true, Casual: 1, Registered: 2, Total: 3},
	})
	df := hourly.Frame()
	require.NoError(t, df.Err)
	assert.Equal(t, 1, df.Nrow())
	assert.Contains(t, df.Names(), ColHour)
	assert.Equal(t, []string{"2011-01-01"}, df.Col(ColDate).Records())
	assert.Equal(t, []string{"1"}, df.Col(ColWorkingDay).Records())

	daily := NewTable(Daily, hourly.Records()).Frame()
	assert.NotContains(t, daily.Names(), ColHour)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 2, DaysBetween(date("2024-01-01"), date("2024-01-03")))
	assert.Equal(t, 0, DaysBetween(date("2024-01-01"), date("2024-01-01")))
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, Daily, tbl.Granularity())
	assert.Nil(t, tbl.Records())
	assert.Nil(t, tbl.TotalMismatches())
	_, _, ok := tbl.DateBounds()
	assert.False(t, ok)
}
