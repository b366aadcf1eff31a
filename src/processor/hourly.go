// hourly.go
package processor

import (
	"sort"
	"strconv"

	"RentalDashboard/src/rental"
)

// HourCount 某小时出现的记录行数
type HourCount struct {
	Hour    int `json:"hour"`
	Records int `json:"records"`
}

// HourlyUsage 按小时统计记录行数(不是租赁总量)，只输出出现过的小时，按小时升序
func HourlyUsage(t *rental.Table) ([]HourCount, error) {
	if t.Granularity() != rental.Hourly {
		return nil, ErrHourUnavailable
	}

	groups, err := groupsOf(t.Frame(), rental.ColHour)
	if err != nil {
		return nil, err
	}

	counts := make([]HourCount, 0, len(groups))
	for _, group := range groups {
		hour, err := strconv.Atoi(firstOf(group, rental.ColHour))
		if err != nil {
			return nil, err
		}
		counts = append(counts, HourCount{Hour: hour, Records: group.Nrow()})
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].Hour < counts[j].Hour })
	return counts, nil
}
