package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"RentalDashboard/src/metrics"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/storage"

	"github.com/google/uuid"
)

var (
	ErrNotLoaded      = errors.New("数据尚未加载")
	ErrUnknownDataset = errors.New("未知的数据集")
)

// Dataset 页面上选择的数据集
type Dataset string

const (
	DatasetHour Dataset = "hour"
	DatasetDay  Dataset = "day"
)

// ParseDataset 空字符串默认为 day
func ParseDataset(s string) (Dataset, error) {
	switch Dataset(strings.ToLower(strings.TrimSpace(s))) {
	case "", DatasetDay:
		return DatasetDay, nil
	case DatasetHour:
		return DatasetHour, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataset, s)
}

// Selection 一次界面交互的输入
type Selection struct {
	Dataset Dataset
	Range   processor.DateRange
}

// Loader 读取两个数据源
type Loader interface {
	Load() (hourly, daily *rental.Table, err error)
}

// Session 持有已加载的表，重新加载时整体替换
type Session struct {
	loader   Loader
	logger   *storage.Logger
	recorder metrics.Recorder

	mu       sync.RWMutex
	hourly   *rental.Table
	daily    *rental.Table
	loadedAt time.Time

	reloadMu sync.Mutex // 同一时刻只有一次加载
}

func NewSession(loader Loader, logger *storage.Logger, recorder metrics.Recorder) *Session {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Session{loader: loader, logger: logger, recorder: recorder}
}

// Load 读取数据源，成功后替换当前的表
// 失败时保留之前加载的表
func (s *Session) Load() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	t1 := time.Now()
	hourly, daily, err := s.loader.Load()
	if err != nil {
		s.recorder.RecordLoad(metrics.StatusError, 0, 0, time.Since(t1))
		s.errorf("加载数据失败: %v", err)
		return err
	}

	s.mu.Lock()
	s.hourly, s.daily = hourly, daily
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.recorder.RecordLoad(metrics.StatusOK, hourly.Len(), daily.Len(), time.Since(t1))
	s.infof("数据已加载: hour %d 行, day %d 行, 耗时 %v", hourly.Len(), daily.Len(), time.Since(t1))
	return nil
}

// Reload 与 Load 相同，供文件监控、定时任务和 SIGHUP 调用
func (s *Session) Reload(reason string) error {
	s.infof("重新加载数据(%s)", reason)
	return s.Load()
}

// Tables 返回当前的表
func (s *Session) Tables() (hourly, daily *rental.Table, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hourly, s.daily, s.hourly != nil && s.daily != nil
}

// LoadedAt 最近一次成功加载的时间
func (s *Session) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Render 对选中的数据集执行一次完整的过滤与聚合
func (s *Session) Render(sel Selection) (*Page, error) {
	t1 := time.Now()
	page, err := s.render(sel)

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	s.recorder.RecordRender(string(sel.Dataset), status, time.Since(t1))
	return page, err
}

func (s *Session) render(sel Selection) (*Page, error) {
	hourly, daily, ok := s.Tables()
	if !ok {
		return nil, ErrNotLoaded
	}

	var source *rental.Table
	switch sel.Dataset {
	case DatasetHour:
		source = hourly
	case DatasetDay:
		source = daily
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, sel.Dataset)
	}

	r := sel.Range.Resolve(source)
	filtered, err := processor.FilterDateRange(source, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("过滤日期失败: %w", err)
	}

	page := &Page{
		ID:         uuid.NewString(),
		Dataset:    sel.Dataset,
		Range:      r,
		Rows:       filtered.Len(),
		Filtered:   filtered,
		RenderedAt: time.Now(),
	}
	if filtered.Len() == 0 {
		page.warn("所选日期范围 %s 内没有数据", r)
	}

	if sel.Dataset == DatasetHour {
		err = page.fillHourly(filtered)
	} else {
		err = page.fillDaily(filtered)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Session) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

func (s *Session) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}
