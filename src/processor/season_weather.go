// season_weather.go
package processor

import (
	"RentalDashboard/src/rental"
)

// SeasonWeatherGrid 季节×天气 的租赁总量矩阵
// 行固定为 Winter→Fall，列固定为 Clear→Heavy Rain/Snow，没有记录的格子为0
type SeasonWeatherGrid struct {
	Seasons  []string  `json:"seasons"`
	Weathers []string  `json:"weathers"`
	Cells    [4][4]int `json:"cells"`
}

// Total 全部格子之和
func (g SeasonWeatherGrid) Total() int {
	sum := 0
	for _, row := range g.Cells {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Empty 所有格子都为0
func (g SeasonWeatherGrid) Empty() bool {
	for _, row := range g.Cells {
		for _, v := range row {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Cell 按标签取值
func (g SeasonWeatherGrid) Cell(season, weather string) int {
	for i, s := range g.Seasons {
		if s != season {
			continue
		}
		for j, w := range g.Weathers {
			if w == weather {
				return g.Cells[i][j]
			}
		}
	}
	return 0
}

func newSeasonWeatherGrid() SeasonWeatherGrid {
	g := SeasonWeatherGrid{}
	for _, s := range rental.Seasons() {
		label, _ := s.Label()
		g.Seasons = append(g.Seasons, label)
	}
	for _, w := range rental.Weathers() {
		label, _ := w.Label()
		g.Weathers = append(g.Weathers, label)
	}
	return g
}

// SeasonWeatherUsage 按 (季节, 天气) 分组对 total_count 求和
// 任一编码无法映射时返回 CategoricalMappingError
func SeasonWeatherUsage(t *rental.Table) (SeasonWeatherGrid, error) {
	grid := newSeasonWeatherGrid()

	df, err := withDerived(t,
		derivation{colSeasonLabel, func(r rental.Record) (string, error) { return r.Season.Label() }},
		derivation{colWeatherLabel, func(r rental.Record) (string, error) { return r.Weather.Label() }},
	)
	if err != nil {
		return grid, err
	}

	groups, err := groupsOf(df, colSeasonLabel, colWeatherLabel)
	if err != nil {
		return grid, err
	}

	rowIdx := indexOf(grid.Seasons)
	colIdx := indexOf(grid.Weathers)
	for _, group := range groups {
		sum, err := sumOf(group, rental.ColTotal)
		if err != nil {
			return grid, err
		}
		i := rowIdx[firstOf(group, colSeasonLabel)]
		j := colIdx[firstOf(group, colWeatherLabel)]
		grid.Cells[i][j] += sum
	}
	return grid, nil
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
