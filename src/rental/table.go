// table.go
package rental

import (
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 规范列名
const (
	ColDate       = "date"
	ColHour       = "hour"
	ColSeason     = "season"
	ColWeather    = "weather_situation"
	ColHoliday    = "is_holiday"
	ColWorkingDay = "is_working_day"
	ColCasual     = "casual_count"
	ColRegistered = "registered_count"
	ColTotal      = "total_count"
	ColRow        = "row" // 原表行号，用于从 DataFrame 结果回溯记录
)

// Columns 返回指定粒度的必需列
func Columns(g Granularity) []string {
	cols := []string{ColDate}
	if g == Hourly {
		cols = append(cols, ColHour)
	}
	return append(cols, ColSeason, ColWeather, ColHoliday, ColWorkingDay, ColCasual, ColRegistered, ColTotal)
}

// Table 只读的租赁记录表
// 构造后不再修改，派生列一律计算到副本中
type Table struct {
	granularity Granularity
	records     []Record
}

// NewTable 复制输入记录创建表
func NewTable(g Granularity, records []Record) *Table {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Table{granularity: g, records: cp}
}

// Granularity nil 表视为日表
func (t *Table) Granularity() Granularity {
	if t == nil {
		return Daily
	}
	return t.granularity
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At 返回第i行(值拷贝)
func (t *Table) At(i int) Record { return t.records[i] }

// Records 返回记录副本
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	cp := make([]Record, len(t.records))
	copy(cp, t.records)
	return cp
}

// DateBounds 表中出现的最小/最大日期，空表 ok=false
func (t *Table) DateBounds() (min, max time.Time, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = t.records[0].Date, t.records[0].Date
	for _, r := range t.records[1:] {
		if r.Date.Before(min) {
			min = r.Date
		}
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return min, max, true
}

// Subset 按行号(保持给定顺序)取子表
func (t *Table) Subset(indices []int) *Table {
	records := make([]Record, 0, len(indices))
	for _, i := range indices {
		records = append(records, t.records[i])
	}
	return &Table{granularity: t.granularity, records: records}
}

// TotalMismatches 返回 total != casual + registered 的行号
func (t *Table) TotalMismatches() []int {
	var rows []int
	for i, r := range t.Records() {
		if !r.TotalsConsistent() {
			rows = append(rows, i)
		}
	}
	return rows
}

// Frame 生成新的 gota DataFrame，每次调用都是独立副本
func (t *Table) Frame() dataframe.DataFrame {
	n := t.Len()
	var (
		rows       = make([]int, n)
		dates      = make([]string, n)
		hours      = make([]int, n)
		seasons    = make([]int, n)
		weathers   = make([]int, n)
		holidays   = make([]int, n)
		working    = make([]int, n)
		casual     = make([]int, n)
		registered = make([]int, n)
		total      = make([]int, n)
	)

	for i, r := range t.Records() {
		rows[i] = i
		dates[i] = r.DateKey()
		hours[i] = r.Hour
		seasons[i] = int(r.Season)
		weathers[i] = int(r.Weather)
		holidays[i] = boolToInt(r.Holiday)
		working[i] = boolToInt(r.WorkingDay)
		casual[i] = r.Casual
		registered[i] = r.Registered
		total[i] = r.Total
	}

	cols := []series.Series{
		series.New(rows, series.Int, ColRow),
		series.New(dates, series.String, ColDate),
	}
	if t.Granularity() == Hourly {
		cols = append(cols, series.New(hours, series.Int, ColHour))
	}
	cols = append(cols,
		series.New(seasons, series.Int, ColSeason),
		series.New(weathers, series.Int, ColWeather),
		series.New(holidays, series.Int, ColHoliday),
		series.New(working, series.Int, ColWorkingDay),
		series.New(casual, series.Int, ColCasual),
		series.New(registered, series.Int, ColRegistered),
		series.New(total, series.Int, ColTotal),
	)
	return dataframe.New(cols...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
