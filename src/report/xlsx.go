package report

import (
	"fmt"
	"strings"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/utils"

	"github.com/xuri/excelize/v2"
)

// 工作表名称
const (
	SheetSummary       = "Summary"
	SheetSeasonWeather = "SeasonWeather"
	SheetUserTypes     = "UserTypes"
	SheetRFM           = "RFM"
	SheetRFMByDayType  = "RFMByDayType"
	SheetHourly        = "Hourly"
	SheetDayTypes      = "DayTypes"
	SheetFiltered      = "Filtered"
)

// Workbook 把一次渲染结果写成工作簿，每个视图一个工作表
func Workbook(page *dashboard.Page) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, *dashboard.Page) error{writeSummary}
	if page.Dataset == dashboard.DatasetHour {
		steps = append(steps, writeHourly, writeDayTypes)
	} else {
		steps = append(steps, writeSeasonWeather, writeUserTypes, writeRFM)
	}
	steps = append(steps, writeFiltered)

	for _, step := range steps {
		if err := step(f, page); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteXLSX 保存到 path
func WriteXLSX(page *dashboard.Page, path string) error {
	f, err := Workbook(page)
	if err != nil {
		return fmt.Errorf("生成报表失败: %w", err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, page *dashboard.Page) error {
	return writeRows(f, SheetSummary, [][]interface{}{
		{"id", page.ID},
		{"dataset", string(page.Dataset)},
		{"start", page.Range.Start.Format(rental.DateLayout)},
		{"end", page.Range.End.Format(rental.DateLayout)},
		{"rows", page.Rows},
		{"warnings", strings.Join(page.Warnings, "; ")},
	})
}

func writeSeasonWeather(f *excelize.File, page *dashboard.Page) error {
	if page.SeasonWeather == nil {
		return nil
	}
	grid := page.SeasonWeather

	header := []interface{}{"season"}
	for _, w := range grid.Weathers {
		header = append(header, w)
	}
	rows := [][]interface{}{header}
	for i, s := range grid.Seasons {
		row := []interface{}{s}
		for j := range grid.Weathers {
			row = append(row, grid.Cells[i][j])
		}
		rows = append(rows, row)
	}
	return writeRows(f, SheetSeasonWeather, rows)
}

func writeUserTypes(f *excelize.File, page *dashboard.Page) error {
	rows := [][]interface{}{{"partition", "casual", "registered", "total"}}
	for _, u := range page.UserTypes {
		rows = append(rows, []interface{}{string(u.Partition), u.Casual, u.Registered, u.Total()})
	}
	return writeRows(f, SheetUserTypes, rows)
}

func rfmRows(key string, in []processor.RFMRow) [][]interface{} {
	rows := [][]interface{}{{key, "recency", "frequency", "monetary"}}
	for _, r := range in {
		rows = append(rows, []interface{}{r.Key, r.Recency, r.Frequency, r.Monetary})
	}
	return rows
}

func writeRFM(f *excelize.File, page *dashboard.Page) error {
	if err := writeRows(f, SheetRFM, rfmRows(rental.ColCasual, page.RFM)); err != nil {
		return err
	}
	return writeRows(f, SheetRFMByDayType, rfmRows("day_type", page.RFMByDayType))
}

func writeHourly(f *excelize.File, page *dashboard.Page) error {
	rows := [][]interface{}{{"hour", "records"}}
	for _, h := range page.Hourly {
		rows = append(rows, []interface{}{h.Hour, h.Records})
	}
	return writeRows(f, SheetHourly, rows)
}

func writeDayTypes(f *excelize.File, page *dashboard.Page) error {
	rows := [][]interface{}{{"day_type", "records"}}
	for _, d := range page.DayTypes {
		rows = append(rows, []interface{}{string(d.DayType), d.Records})
	}
	return writeRows(f, SheetDayTypes, rows)
}

func writeFiltered(f *excelize.File, page *dashboard.Page) error {
	if page.Filtered == nil {
		return nil
	}
	df := page.Filtered.Frame().Drop(rental.ColRow)
	if df.Err != nil {
		return df.Err
	}
	return utils.WriteFrame(f, SheetFiltered, df)
}
