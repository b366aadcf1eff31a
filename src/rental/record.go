// record.go
package rental

import (
	"time"
)

// DateLayout 数据源及报表中统一使用的日期格式
const DateLayout = "2006-01-02"

// Granularity 数据表粒度
type Granularity int

const (
	Hourly Granularity = iota // 按小时记录(hour.csv)
	Daily                     // 按天记录(day.csv)
)

func (g Granularity) String() string {
	switch g {
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

// Season 季节编码 1-4
type Season int

const (
	Winter Season = iota + 1
	Spring
	Summer
	Fall
)

var seasonLabels = map[Season]string{
	Winter: "Winter",
	Spring: "Spring",
	Summer: "Summer",
	Fall:   "Fall",
}

// Seasons 返回固定顺序 Winter→Spring→Summer→Fall
func Seasons() []Season {
	return []Season{Winter, Spring, Summer, Fall}
}

// Valid 判断编码是否在定义域内
func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}

// Label 编码转标签，未定义的编码返回 CategoricalMappingError
func (s Season) Label() (string, error) {
	label, ok := seasonLabels[s]
	if !ok {
		return "", &CategoricalMappingError{Dimension: "season", Code: int(s), Row: -1}
	}
	return label, nil
}

// Weather 天气状况编码 1-4
type Weather int

const (
	Clear Weather = iota + 1
	MistCloudy
	LightSnowRain
	HeavyRainSnow
)

var weatherLabels = map[Weather]string{
	Clear:         "Clear",
	MistCloudy:    "Mist/Cloudy",
	LightSnowRain: "Light Snow/Rain",
	HeavyRainSnow: "Heavy Rain/Snow",
}

// Weathers 返回固定顺序的天气编码
func Weathers() []Weather {
	return []Weather{Clear, MistCloudy, LightSnowRain, HeavyRainSnow}
}

func (w Weather) Valid() bool {
	_, ok := weatherLabels[w]
	return ok
}

// Label 编码转标签，未定义的编码返回 CategoricalMappingError
func (w Weather) Label() (string, error) {
	label, ok := weatherLabels[w]
	if !ok {
		return "", &CategoricalMappingError{Dimension: "weather_situation", Code: int(w), Row: -1}
	}
	return label, nil
}

// DayType 日期类型
type DayType string

const (
	Holiday    DayType = "Holiday"
	Weekend    DayType = "Weekend"
	Workingday DayType = "Workingday"
)

// DayTypes 固定输出顺序
func DayTypes() []DayType {
	return []DayType{Holiday, Weekend, Workingday}
}

// Partition 用户类型对比所用的分区
type Partition string

const (
	WeekdayPartition Partition = "Weekday"
	WeekendPartition Partition = "Weekend"
)

// Partitions 固定输出顺序
func Partitions() []Partition {
	return []Partition{WeekdayPartition, WeekendPartition}
}

// Record 一行租赁记录
type Record struct {
	Date       time.Time // 日期(UTC零点)
	Hour       int       // 小时 0-23，仅小时表有效
	Season     Season
	Weather    Weather
	Holiday    bool
	WorkingDay bool
	Casual     int // 非注册用户数
	Registered int // 注册用户数
	Total      int // 总数
}

// DayType 按 节假日 → 周末 → 工作日 的优先级分类
func (r Record) DayType() DayType {
	if r.Holiday {
		return Holiday
	}
	if !r.WorkingDay {
		return Weekend
	}
	return Workingday
}

// Partition 只依据 WorkingDay 划分
func (r Record) Partition() Partition {
	if r.WorkingDay {
		return WeekdayPartition
	}
	return WeekendPartition
}

// TotalsConsistent total == casual + registered
func (r Record) TotalsConsistent() bool {
	return r.Total == r.Casual+r.Registered
}

// DateKey 日期字符串，可直接按字典序比较
func (r Record) DateKey() string {
	return r.Date.Format(DateLayout)
}

// Day 截断为 UTC 零点
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 ISO-8601 日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// DaysBetween 两个日期相差的天数
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
