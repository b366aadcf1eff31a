// daytype.go
package processor

import (
	"RentalDashboard/src/rental"
)

// DayTypeCounts 日期类型 → 记录行数，只含出现过的类型
type DayTypeCounts map[rental.DayType]int

// DayTypeCount 有序输出项
type DayTypeCount struct {
	DayType rental.DayType `json:"day_type"`
	Records int            `json:"records"`
}

// Ordered 按 Holiday, Weekend, Workingday 顺序输出
func (c DayTypeCounts) Ordered() []DayTypeCount {
	out := make([]DayTypeCount, 0, len(c))
	for _, dt := range rental.DayTypes() {
		if n, ok := c[dt]; ok {
			out = append(out, DayTypeCount{DayType: dt, Records: n})
		}
	}
	return out
}

// DayTypeUsage 按日期类型统计记录行数
func DayTypeUsage(t *rental.Table) (DayTypeCounts, error) {
	df, err := withDerived(t, derivation{colDayType, func(r rental.Record) (string, error) {
		return string(r.DayType()), nil
	}})
	if err != nil {
		return nil, err
	}

	groups, err := groupsOf(df, colDayType)
	if err != nil {
		return nil, err
	}

	counts := make(DayTypeCounts, len(groups))
	for _, group := range groups {
		counts[rental.DayType(firstOf(group, colDayType))] = group.Nrow()
	}
	return counts, nil
}
