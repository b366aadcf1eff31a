// frame.go
package processor

import (
	"errors"
	"fmt"

	"RentalDashboard/src/rental"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrHourUnavailable 对日表请求按小时统计
var ErrHourUnavailable = errors.New("数据表不含小时列")

// 派生列名
const (
	colSeasonLabel  = "season_label"
	colWeatherLabel = "weather_label"
	colDayType      = "day_type"
	colPartition    = "partition"
)

// intsOf 读取整数列
func intsOf(df dataframe.DataFrame, col string) ([]int, error) {
	vals, err := df.Col(col).Int()
	if err != nil {
		return nil, fmt.Errorf("列 %s 转换整数失败: %w", col, err)
	}
	return vals, nil
}

// sumOf 整数列求和
func sumOf(df dataframe.DataFrame, col string) (int, error) {
	vals, err := intsOf(df, col)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return sum, nil
}

// groupsOf 分组，空表返回空map
func groupsOf(df dataframe.DataFrame, cols ...string) (map[string]dataframe.DataFrame, error) {
	if df.Nrow() == 0 {
		return map[string]dataframe.DataFrame{}, nil
	}
	g := df.GroupBy(cols...)
	if g.Err != nil {
		return nil, fmt.Errorf("按 %v 分组失败: %w", cols, g.Err)
	}
	return g.GetGroups(), nil
}

// firstOf 组内某列的第一个值(分组键在组内相同)
func firstOf(group dataframe.DataFrame, col string) string {
	return group.Col(col).Records()[0]
}

// derivation 派生列定义
type derivation struct {
	name   string
	derive func(rental.Record) (string, error)
}

// withDerived 在表的副本上追加派生列，原表不受影响
func withDerived(t *rental.Table, derivations ...derivation) (dataframe.DataFrame, error) {
	df := t.Frame()
	for _, d := range derivations {
		labels := make([]string, t.Len())
		for i := 0; i < t.Len(); i++ {
			label, err := d.derive(t.At(i))
			if err != nil {
				var mapErr *rental.CategoricalMappingError
				if errors.As(err, &mapErr) {
					mapErr.Row = i
				}
				return dataframe.DataFrame{}, err
			}
			labels[i] = label
		}

		df = df.Mutate(series.New(labels, series.String, d.name))
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("添加派生列 %s 失败: %w", d.name, df.Err)
		}
	}
	return df, nil
}
