// reader.go
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"RentalDashboard/src/config"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/storage"
	"RentalDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// 数据源名称，出现在错误信息中
const (
	SourceHour = "hour"
	SourceDay  = "day"
)

// Loader 读取小时表和日表
type Loader struct {
	HourPath     string
	DayPath      string
	Columns      *config.DataConfig
	SheetName    string // xlsx 数据源工作表，为空取第一个
	HeaderRow    int    // xlsx 标题行
	StrictTotals bool
	Logger       *storage.Logger // 可为空
}

// NewLoader 按配置创建 Loader
func NewLoader(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) *Loader {
	if dcfg == nil {
		dcfg = config.DefaultDataConfig()
	}
	if logger != nil {
		logger.Infof("列映射: %v", dcfg.Snapshot())
	}
	return &Loader{
		HourPath:     cfg.Data.HourPath,
		DayPath:      cfg.Data.DayPath,
		Columns:      dcfg,
		SheetName:    cfg.Data.SheetName,
		HeaderRow:    cfg.Data.HeaderRow,
		StrictTotals: cfg.Data.StrictTotals,
		Logger:       logger,
	}
}

// Load 读取两个数据源
// 任一文件缺失时在读取前就返回 DataUnavailableError
func (l *Loader) Load() (hourly, daily *rental.Table, err error) {
	// 1. 先确认两个文件都存在
	for _, src := range []struct{ name, path string }{{SourceHour, l.HourPath}, {SourceDay, l.DayPath}} {
		if err := checkReadable(src.name, src.path); err != nil {
			return nil, nil, err
		}
	}

	// 2. 逐个读取并校验
	hourly, err = l.LoadTable(SourceHour, l.HourPath, rental.Hourly)
	if err != nil {
		return nil, nil, err
	}
	daily, err = l.LoadTable(SourceDay, l.DayPath, rental.Daily)
	if err != nil {
		return nil, nil, err
	}
	return hourly, daily, nil
}

// LoadTable 读取单个数据源并转换为 rental.Table
func (l *Loader) LoadTable(source, path string, g rental.Granularity) (*rental.Table, error) {
	t1 := time.Now()
	df, err := ReadFrame(path, l.SheetName, l.HeaderRow)
	if err != nil {
		return nil, &rental.DataUnavailableError{Source: source, Path: path, Err: err}
	}

	columns := l.Columns
	if columns == nil {
		columns = config.DefaultDataConfig()
	}
	table, err := FrameToTable(df, g, source, columns)
	if err != nil {
		return nil, err
	}

	if rows := table.TotalMismatches(); len(rows) > 0 {
		totalsErr := &rental.TotalsError{Source: source, Rows: rows}
		if l.StrictTotals {
			return nil, totalsErr
		}
		l.warn(fmt.Sprintf("%v，首行: %d", totalsErr, rows[0]))
	}

	l.info(fmt.Sprintf("已加载 %s: %d 行，耗时 %v", path, table.Len(), time.Since(t1)))
	return table, nil
}

func (l *Loader) info(msg string) {
	if l.Logger != nil {
		l.Logger.Info(msg)
	}
}

func (l *Loader) warn(msg string) {
	if l.Logger != nil {
		l.Logger.Warning(msg)
	}
}

func checkReadable(source, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &rental.DataUnavailableError{Source: source, Path: path, Err: err}
	}
	if info.IsDir() {
		return &rental.DataUnavailableError{Source: source, Path: path, Err: fmt.Errorf("%s 是目录", path)}
	}
	return nil
}

// ReadFrame 按扩展名读取 csv 或 xlsx，所有列均为字符串
func ReadFrame(path, sheetName string, headerRow int) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheetName, headerRow)
	default:
		return ReadCSV(path)
	}
}

// ReadCSV 读取 csv 为字符串 DataFrame，类型在转换时再逐列校验
func ReadCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.New(), err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("解析csv失败: %w", df.Err)
	}
	return df, nil
}

// ReadXLSX 读取工作表为字符串 DataFrame
func ReadXLSX(filePath, sheetName string, headerRow int) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表，未指定时取第一个
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表")
	}
	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在", sheetName)
		}
		sheet = s
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet, headerRow)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet, headerRow int) (dataframe.DataFrame, error) {
	if len(sheet.Rows) <= headerRow {
		return dataframe.New(), fmt.Errorf("工作表 %s 没有标题行", sheet.Name)
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[headerRow].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	// 准备数据列
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-headerRow-1)
	}

	// 填充数据(从标题行下一行开始)，跳过整行为空的行
	for _, row := range sheet.Rows[headerRow+1:] {
		if row == nil || emptyRow(row) {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	// 创建Series切片
	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	return df, df.Err
}

func emptyRow(row *xlsx.Row) bool {
	for _, cell := range row.Cells {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// FrameToTable 校验列与类型并转换为 rental.Table
func FrameToTable(df dataframe.DataFrame, g rental.Granularity, source string, columns *config.DataConfig) (*rental.Table, error) {
	values := make(map[string][]string)
	for _, col := range rental.Columns(g) {
		header := columns.Column(col)
		if !utils.HasColumn(df, header) {
			return nil, &rental.SchemaMismatchError{Source: source, Column: header, Row: -1, Reason: "缺少必需列"}
		}
		values[col] = df.Col(header).Records()
	}

	records := make([]rental.Record, df.Nrow())
	for i := range records {
		p := rowParser{source: source, row: i, values: values, columns: columns}
		r := rental.Record{
			Date:       p.date(rental.ColDate),
			Season:     rental.Season(p.integer(rental.ColSeason)),
			Weather:    rental.Weather(p.integer(rental.ColWeather)),
			Holiday:    p.flag(rental.ColHoliday),
			WorkingDay: p.flag(rental.ColWorkingDay),
			Casual:     p.count(rental.ColCasual),
			Registered: p.count(rental.ColRegistered),
			Total:      p.count(rental.ColTotal),
		}
		if g == rental.Hourly {
			r.Hour = p.integer(rental.ColHour)
			if p.err == nil && (r.Hour < 0 || r.Hour > 23) {
				p.fail(rental.ColHour, "小时超出 0-23")
			}
		}
		if p.err != nil {
			return nil, p.err
		}

		// 分类编码超出定义域直接拒绝，不能变成空标签
		if !r.Season.Valid() {
			return nil, &rental.CategoricalMappingError{Dimension: rental.ColSeason, Code: int(r.Season), Row: i}
		}
		if !r.Weather.Valid() {
			return nil, &rental.CategoricalMappingError{Dimension: rental.ColWeather, Code: int(r.Weather), Row: i}
		}
		records[i] = r
	}
	return rental.NewTable(g, records), nil
}

// rowParser 逐字段解析一行，记录第一个错误
type rowParser struct {
	source  string
	row     int
	values  map[string][]string
	columns *config.DataConfig
	err     error
}

func (p *rowParser) raw(col string) string {
	return strings.TrimSpace(p.values[col][p.row])
}

func (p *rowParser) fail(col, reason string) {
	if p.err != nil {
		return
	}
	p.err = &rental.SchemaMismatchError{
		Source: p.source,
		Column: p.columns.Column(col),
		Row:    p.row,
		Value:  p.raw(col),
		Reason: reason,
	}
}

// 支持的日期格式
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
}

func (p *rowParser) date(col string) time.Time {
	t, err := utils.ParseTime(p.raw(col), dateFormats...)
	if err != nil {
		p.fail(col, "不是有效日期")
		return time.Time{}
	}
	return rental.Day(t)
}

func (p *rowParser) integer(col string) int {
	s := p.raw(col)
	n, err := strconv.Atoi(s)
	if err != nil {
		// xlsx 数值单元格可能是 "1.0"
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			p.fail(col, "不是整数")
			return 0
		}
		n = int(f)
	}
	return n
}

func (p *rowParser) count(col string) int {
	n := p.integer(col)
	if n < 0 {
		p.fail(col, "不能为负数")
	}
	return n
}

func (p *rowParser) flag(col string) bool {
	switch p.raw(col) {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	p.fail(col, "应为 0/1")
	return false
}
