package rental

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable    = errors.New("数据源不可用")
	ErrSchemaMismatch     = errors.New("数据结构不匹配")
	ErrCategoricalMapping = errors.New("分类编码无法映射")
	ErrInconsistentTotals = errors.New("总数与分项之和不一致")
)

// DataUnavailableError 数据文件缺失或无法读取
type DataUnavailableError struct {
	Source string // hour / day
	Path   string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s (%s): %v", ErrDataUnavailable, e.Source, e.Path, e.Err)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrDataUnavailable, e.Source, e.Path)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// SchemaMismatchError 缺列或类型错误
type SchemaMismatchError struct {
	Source string
	Column string
	Row    int // -1 表示列级错误
	Value  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: %s 列 %q: %s", ErrSchemaMismatch, e.Source, e.Column, e.Reason)
	}
	return fmt.Sprintf("%v: %s 第%d行 列 %q 值 %q: %s", ErrSchemaMismatch, e.Source, e.Row, e.Column, e.Value, e.Reason)
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// CategoricalMappingError 季节或天气编码超出定义域
type CategoricalMappingError struct {
	Dimension string
	Code      int
	Row       int
}

func (e *CategoricalMappingError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("%v: %s=%d", ErrCategoricalMapping, e.Dimension, e.Code)
	}
	return fmt.Sprintf("%v: 第%d行 %s=%d", ErrCategoricalMapping, e.Row, e.Dimension, e.Code)
}

func (e *CategoricalMappingError) Is(target error) bool { return target == ErrCategoricalMapping }

// TotalsError total_count 与 casual+registered 不一致的行
type TotalsError struct {
	Source string
	Rows   []int
}

func (e *TotalsError) Error() string {
	return fmt.Sprintf("%v: %s 共%d行", ErrInconsistentTotals, e.Source, len(e.Rows))
}

func (e *TotalsError) Is(target error) bool { return target == ErrInconsistentTotals }
