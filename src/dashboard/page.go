package dashboard

import (
	"fmt"
	"time"

	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"
)

// Page 一次渲染的全部结果
// day 数据集填充季节天气、用户类型和 RFM，hour 数据集填充小时分布和日期类型
type Page struct {
	ID         string              `json:"id"`
	Dataset    Dataset             `json:"dataset"`
	Range      processor.DateRange `json:"range"`
	Rows       int                 `json:"rows"`
	Filtered   *rental.Table       `json:"-"`
	Warnings   []string            `json:"warnings,omitempty"`
	RenderedAt time.Time           `json:"rendered_at"`

	SeasonWeather *processor.SeasonWeatherGrid `json:"season_weather,omitempty"`
	UserTypes     []processor.UserTypeUsage    `json:"user_types,omitempty"`
	RFM           []processor.RFMRow           `json:"rfm,omitempty"`
	RFMByDayType  []processor.RFMRow           `json:"rfm_by_day_type,omitempty"`

	Hourly   []processor.HourCount    `json:"hourly,omitempty"`
	DayTypes []processor.DayTypeCount `json:"day_types,omitempty"`
}

func (p *Page) warn(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

func (p *Page) fillDaily(t *rental.Table) error {
	grid, err := processor.SeasonWeatherUsage(t)
	if err != nil {
		return fmt.Errorf("季节天气统计失败: %w", err)
	}
	if grid.Empty() {
		p.warn("没有季节/天气数据")
	}
	p.SeasonWeather = &grid

	if p.UserTypes, err = processor.UserTypeComparison(t); err != nil {
		return fmt.Errorf("用户类型统计失败: %w", err)
	}
	if p.RFM, err = processor.RFMByCasualCount(t); err != nil {
		return fmt.Errorf("RFM统计失败: %w", err)
	}
	if p.RFMByDayType, err = processor.RFMByDayType(t); err != nil {
		return fmt.Errorf("RFM统计失败: %w", err)
	}
	return nil
}

func (p *Page) fillHourly(t *rental.Table) error {
	hourly, err := processor.HourlyUsage(t)
	if err != nil {
		return fmt.Errorf("小时统计失败: %w", err)
	}
	p.Hourly = hourly

	counts, err := processor.DayTypeUsage(t)
	if err != nil {
		return fmt.Errorf("日期类型统计失败: %w", err)
	}
	p.DayTypes = counts.Ordered()
	return nil
}
