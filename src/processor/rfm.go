// rfm.go
package processor

import (
	"sort"
	"strconv"

	"RentalDashboard/src/rental"

	"github.com/go-gota/gota/dataframe"
)

// RFMRow 一个分组键的 Recency/Frequency/Monetary
type RFMRow struct {
	Key       string `json:"key"`
	Recency   int    `json:"recency_days"` // 参考日期 - 组内最早日期
	Frequency int    `json:"frequency"`    // 组内记录行数
	Monetary  int    `json:"monetary"`     // 组内 total_count 之和
}

// RFMByCasualCount 以 casual_count 的数值本身作为分组键
// 这个键不代表任何客户身份，需要按实体分组时用 RFMByDayType；按键的数值升序输出
func RFMByCasualCount(t *rental.Table) ([]RFMRow, error) {
	rows, err := summarizeRFM(t, t.Frame(), rental.ColCasual)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		a, _ := strconv.Atoi(rows[i].Key)
		b, _ := strconv.Atoi(rows[j].Key)
		return a < b
	})
	return rows, nil
}

// RFMByDayType 以日期类型为分组键，按 Holiday, Weekend, Workingday 顺序输出
func RFMByDayType(t *rental.Table) ([]RFMRow, error) {
	df, err := withDerived(t, derivation{colDayType, func(r rental.Record) (string, error) {
		return string(r.DayType()), nil
	}})
	if err != nil {
		return nil, err
	}
	rows, err := summarizeRFM(t, df, colDayType)
	if err != nil {
		return nil, err
	}

	order := make(map[string]int)
	for i, dt := range rental.DayTypes() {
		order[string(dt)] = i
	}
	sort.Slice(rows, func(i, j int) bool { return order[rows[i].Key] < order[rows[j].Key] })
	return rows, nil
}

// summarizeRFM 对 df 按 keyCol 分组，计算最早日期、行数与总量
func summarizeRFM(t *rental.Table, df dataframe.DataFrame, keyCol string) ([]RFMRow, error) {
	_, reference, ok := t.DateBounds()
	if !ok {
		return []RFMRow{}, nil
	}

	groups, err := groupsOf(df, keyCol)
	if err != nil {
		return nil, err
	}

	rows := make([]RFMRow, 0, len(groups))
	for _, group := range groups {
		first := ""
		for _, d := range group.Col(rental.ColDate).Records() {
			if first == "" || d < first {
				first = d
			}
		}
		firstDate, err := rental.ParseDate(first)
		if err != nil {
			return nil, err
		}
		monetary, err := sumOf(group, rental.ColTotal)
		if err != nil {
			return nil, err
		}

		rows = append(rows, RFMRow{
			Key:       firstOf(group, keyCol),
			Recency:   rental.DaysBetween(firstDate, reference),
			Frequency: group.Nrow(),
			Monetary:  monetary,
		})
	}
	return rows, nil
}
