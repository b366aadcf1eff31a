// filter.go
package processor

import (
	"fmt"
	"time"

	"RentalDashboard/src/rental"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DateRange 闭区间日期范围，零值边界表示取表中的最小/最大日期
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Resolve 补全默认边界
func (r DateRange) Resolve(t *rental.Table) DateRange {
	min, max, ok := t.DateBounds()
	if !ok {
		return r
	}
	if r.Start.IsZero() {
		r.Start = min
	}
	if r.End.IsZero() {
		r.End = max
	}
	return r
}

// Empty 起始日期晚于结束日期
func (r DateRange) Empty() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && rental.Day(r.Start).After(rental.Day(r.End))
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format(rental.DateLayout), r.End.Format(rental.DateLayout))
}

// FilterRange 先补全默认边界再过滤
func FilterRange(t *rental.Table, r DateRange) (*rental.Table, error) {
	r = r.Resolve(t)
	return FilterDateRange(t, r.Start, r.End)
}

// FilterDateRange 保留 start <= date <= end 的记录，保持原有顺序
// start 晚于 end 时返回空表而不是错误
func FilterDateRange(t *rental.Table, start, end time.Time) (*rental.Table, error) {
	if t.Len() == 0 || rental.Day(start).After(rental.Day(end)) {
		return rental.NewTable(t.Granularity(), nil), nil
	}

	// 日期列为 YYYY-MM-DD 字符串，按字典序比较即可
	lo := rental.Day(start).Format(rental.DateLayout)
	hi := rental.Day(end).Format(rental.DateLayout)

	df := t.Frame().Filter(
		dataframe.F{
			Colname:    rental.ColDate,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				d := el.String()
				return d >= lo && d <= hi
			},
		},
	)
	if df.Err != nil {
		return nil, fmt.Errorf("按日期过滤失败: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return rental.NewTable(t.Granularity(), nil), nil
	}

	rows, err := intsOf(df, rental.ColRow)
	if err != nil {
		return nil, err
	}
	return t.Subset(rows), nil
}
